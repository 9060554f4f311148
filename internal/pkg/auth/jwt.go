package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

// Verifier turns a bearer credential into the verified actor.
type Verifier interface {
	Verify(token string) (model.Actor, error)
}

// Claims carried by tokens of the identity provider. Subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier builds a verifier for the given secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

// Verify validates signature and expiry and returns the token subject and role.
func (v *JWTVerifier) Verify(token string) (model.Actor, error) {
	if token == "" {
		return model.Actor{}, domainErrors.ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Actor{}, fmt.Errorf("%w: token expired", domainErrors.ErrInvalidToken)
		}
		return model.Actor{}, domainErrors.ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" || claims.Role == "" {
		return model.Actor{}, domainErrors.ErrInvalidToken
	}

	return model.Actor{UserID: claims.Subject, Role: model.Role(claims.Role)}, nil
}
