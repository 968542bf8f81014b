package auth

import (
	"context"
	"slices"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// RoleLookup loads the current role of a user.
type RoleLookup func(ctx context.Context, userID uint) (models.Role, error)

// RequireRoles checks the user's role against the database, so a demotion
// applies to tokens issued before it. It must be used AFTER AuthMiddleware.
func RequireRoles(lookup RoleLookup, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == 0 {
			_ = c.Error(apperr.Unauthorized("error.unauthorized"))
			c.Abort()
			return
		}

		role, err := lookup(c.Request.Context(), userID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				err = apperr.Unauthorized("error.unauthorized")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		if !slices.Contains(roles, role) {
			_ = c.Error(apperr.Forbidden("error.forbidden"))
			c.Abort()
			return
		}

		c.Set(RoleKey, role)
		c.Next()
	}
}
