package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/motortrade/salesd/pkg/auth"
)

const userContextKey = "user"

// Auth validates the bearer token and stores the decoded claims on the
// request context for handlers to filter on.
func Auth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization"})
			return
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(userContextKey, claims)
		c.Next()
	}
}

// UserFromContext returns the claims stored by Auth, or nil when the request
// was not authenticated.
func UserFromContext(c *gin.Context) *auth.UserClaims {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*auth.UserClaims)
	if !ok {
		return nil
	}
	return claims
}
