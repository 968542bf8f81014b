package auth

import (
	"gamehub/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// OptionalAuthMiddleware inspects for a token and sets the user if present and valid,
// but does not fail if the token is missing or invalid.
func OptionalAuthMiddleware(tokens *jwt.Manager, revoked Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			_ = authenticate(c, tokens, revoked, raw)
		}
		c.Next()
	}
}
