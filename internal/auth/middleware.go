package auth

import (
	"net/http"
	"strings"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

type errorBody struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Middleware authenticates the bearer token, resolves the local account and
// stores the principal on the gin context.
func Middleware(verifier Verifier, resolver Resolver, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Message: "User not authenticated", Details: err.Error()})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			logger.Warn("Token rejected", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Message: "Invalid token"})
			return
		}

		principal, err := resolver.Resolve(c.Request.Context(), identity)
		if err != nil {
			logger.LogError(err, "Failed to resolve principal", "email", identity.Email)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Message: "Unknown user"})
			return
		}

		c.Set(principalKey, principal)
		c.Set("user_id", principal.UserID)
		c.Next()
	}
}

// RequireRole rejects principals whose role is not in roles.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Message: "User not authenticated"})
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Message: "Access denied"})
	}
}

// FromContext returns the principal stored by Middleware.
func FromContext(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}

// WithPrincipal stores p on the gin context. Handlers read it back with
// FromContext.
func WithPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
	c.Set("user_id", p.UserID)
}

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
