package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/orderflow/internal/config"
)

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newCodeVerifier),
	fx.Provide(newVerifier),
)

func newCodeVerifier() CodeVerifier {
	return NewBcryptCodes(0)
}

type verifierParams struct {
	fx.In

	Config *config.Config
}

func newVerifier(p verifierParams) Verifier {
	return NewJWTVerifier(p.Config.JWTSecret)
}
