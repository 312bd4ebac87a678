package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/verso-cms/server-verso/internal/schemas"
	"github.com/verso-cms/server-verso/internal/utils"
)

// RequireRole restricts a route to the given roles. It runs after the JWT
// middleware and reads the role claim from the validated token.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		claims, ok := c.Value(utils.ClaimsKey.String()).(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, &schemas.ErrorDTO{Error: *schemas.Unauthorized})
			return
		}

		role, _ := claims["role"].(string)
		if !allowed[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, &schemas.ErrorDTO{Error: *schemas.Forbidden})
			return
		}

		c.Next()
	}
}

// RequireVerified rejects requests from accounts that have not completed
// email verification yet.
func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := c.Value(utils.ClaimsKey.String()).(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, &schemas.ErrorDTO{Error: *schemas.Unauthorized})
			return
		}

		if verified, _ := claims["verified"].(bool); !verified {
			c.AbortWithStatusJSON(http.StatusForbidden, &schemas.ErrorDTO{Error: *schemas.UserNotVerified})
			return
		}

		c.Next()
	}
}
