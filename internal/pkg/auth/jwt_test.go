package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
)

const testSecret = "test-secret-key-for-testing-purposes"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(subject, role string) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestJWTVerifier_Valid(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user-1", "restaurant"))

	actor, err := verifier.Verify(token)

	require.NoError(t, err)
	assert.Equal(t, model.Actor{UserID: "user-1", Role: model.RoleRestaurant}, actor)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)
	expired := validClaims("user-1", "admin")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := validClaims("user-1", "admin")
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims("user-1", "admin")),
		"expired":      sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
		"no expiry":    sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
		"hs512":        sign(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("user-1", "admin")),
		"no role":      sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user-1", "")),
		"no subject":   sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("", "admin")),
		"garbage":      "not.a.token",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(token)
			assert.True(t, errors.Is(err, domainErrors.ErrInvalidToken), "got %v", err)
			assert.True(t, errors.Is(err, domainErrors.ErrUnauthorized))
		})
	}
}

func TestJWTVerifier_Missing(t *testing.T) {
	_, err := NewJWTVerifier(testSecret).Verify("")
	assert.ErrorIs(t, err, domainErrors.ErrMissingToken)
}
