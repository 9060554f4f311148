package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
)

// CodeVerifier checks a delivery handoff code against its stored hash.
type CodeVerifier interface {
	Verify(hash, code string) error
}

// BcryptCodes hashes and verifies handoff codes with bcrypt.
type BcryptCodes struct {
	cost int
}

// NewBcryptCodes creates BcryptCodes with provided cost.
func NewBcryptCodes(cost int) *BcryptCodes {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptCodes{cost: cost}
}

// Hash returns bcrypt hash for provided code.
func (h *BcryptCodes) Hash(code string) (string, error) {
	encoded, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// Verify reports ErrSecurityCodeMismatch for a wrong or empty code.
func (h *BcryptCodes) Verify(hash, code string) error {
	if code == "" {
		return domainErrors.ErrSecurityCodeMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domainErrors.ErrSecurityCodeMismatch
	}
	return err
}
