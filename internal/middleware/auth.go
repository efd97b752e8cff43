package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/auc-api/internal/utils"
)

// UserEmailKey is the gin context key Identify stores the caller under.
const UserEmailKey = "userEmail"

// Identify reads an optional bearer token and, when it verifies, records the
// caller's email on the context. It never rejects a request: the routes are
// public and the identity is only used for request logging.
func Identify(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if found && tokenString != "" {
			if claims, err := utils.ValidateJWT(secret, tokenString); err == nil {
				c.Set(UserEmailKey, claims.Email)
			}
		}

		c.Next()
	}
}
