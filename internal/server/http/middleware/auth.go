package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/domain/model"
	pkgAuth "github.com/polkiloo/orderflow/internal/pkg/auth"
)

const (
	// ActorContextKey is a gin context key for the authenticated actor.
	ActorContextKey = "actor"
	authCookieName  = "access_token"
	tokenQueryParam = "token"
)

// AuthRequired ensures the caller presents a valid bearer token in the header or cookie.
func AuthRequired(verifier pkgAuth.Verifier) gin.HandlerFunc {
	return authenticate(verifier, false)
}

// StreamAuthRequired also accepts the token as a query parameter, since browser
// event streams cannot set headers.
func StreamAuthRequired(verifier pkgAuth.Verifier) gin.HandlerFunc {
	return authenticate(verifier, true)
}

func authenticate(verifier pkgAuth.Verifier, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" && allowQuery {
			token = strings.TrimSpace(c.Query(tokenQueryParam))
		}
		if token == "" {
			abort(c, http.StatusUnauthorized, domainErrors.ErrMissingToken)
			return
		}

		actor, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, domainErrors.ErrUnauthorized) {
				abort(c, http.StatusUnauthorized, err)
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Set(ActorContextKey, actor)
		c.Next()
	}
}

// RequireRole rejects authenticated callers holding none of the roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		val, _ := c.Get(ActorContextKey)
		actor, ok := val.(model.Actor)
		if !ok {
			abort(c, http.StatusUnauthorized, domainErrors.ErrMissingToken)
			return
		}
		if !actor.Is(roles...) {
			abort(c, http.StatusForbidden, domainErrors.ErrWrongRole)
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if cookie, err := c.Cookie(authCookieName); err == nil {
		return cookie
	}
	return ""
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
