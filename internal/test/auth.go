package test

import (
	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	pkgAuth "github.com/polkiloo/orderflow/internal/pkg/auth"
)

// VerifierStub maps raw tokens to actors.
type VerifierStub struct {
	Actors   map[string]model.Actor
	VerifyFn func(string) (model.Actor, error)
}

// Verify resolves a token through the override or the Actors map.
func (s VerifierStub) Verify(token string) (model.Actor, error) {
	if s.VerifyFn != nil {
		return s.VerifyFn(token)
	}
	if token == "" {
		return model.Actor{}, domainErrors.ErrMissingToken
	}
	if a, ok := s.Actors[token]; ok {
		return a, nil
	}
	return model.Actor{}, domainErrors.ErrInvalidToken
}

// CodeVerifierStub accepts codes stored as "hash:<code>".
type CodeVerifierStub struct {
	Calls int
}

// Verify compares the code against the fake hash.
func (s *CodeVerifierStub) Verify(hash, code string) error {
	s.Calls++
	if hash != "hash:"+code {
		return domainErrors.ErrSecurityCodeMismatch
	}
	return nil
}

var (
	_ pkgAuth.Verifier     = VerifierStub{}
	_ pkgAuth.CodeVerifier = (*CodeVerifierStub)(nil)
)
