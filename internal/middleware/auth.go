package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Daquiver1/veefyed/internal/models"
	"github.com/Daquiver1/veefyed/internal/service"
)

// APIKeyHeader carries the opaque credential on every authenticated request.
const APIKeyHeader = "X-API-Key"

const principalContextKey = "principal"

// Verifier is the gate the middleware delegates to.
type Verifier interface {
	Identify(ctx context.Context, presented string) (models.Principal, error)
	Verify(ctx context.Context, presented string, required models.Scope) (models.Principal, error)
}

// Auth authenticates the API key header without requiring any scope.
func Auth(gate Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := gate.Identify(c.Request.Context(), c.GetHeader(APIKeyHeader))
		if err != nil {
			abortAuthFailure(c, err)
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// RequireScope authenticates the API key header and requires one scope.
func RequireScope(gate Verifier, scope models.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := gate.Verify(c.Request.Context(), c.GetHeader(APIKeyHeader), scope)
		if err != nil {
			abortAuthFailure(c, err)
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// CurrentPrincipal returns the verified principal set by Auth or RequireScope.
func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := val.(models.Principal)
	return principal, ok
}

// abortAuthFailure keeps rejection bodies undifferentiated. Which check
// failed is logged by the gate, never surfaced to the caller.
func abortAuthFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientScope):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredential):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}
