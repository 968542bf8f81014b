// Package auth authenticates requests with bearer access tokens.
package auth

import (
	"context"
	"strings"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"
	"gamehub/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey    = "userID"
	RoleKey      = "role"
	SessionIDKey = "sessionID"
	ClaimsKey    = "claims"
)

// Revocations reports whether an access token id was revoked before expiry.
type Revocations interface {
	IsBlacklisted(ctx context.Context, jti string) bool
}

// AuthMiddleware requires a valid bearer token and stores its claims on the context.
func AuthMiddleware(tokens *jwt.Manager, revoked Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			_ = c.Error(apperr.Unauthorized("error.unauthorized"))
			c.Abort()
			return
		}
		if err := authenticate(c, tokens, revoked, raw); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, tokens *jwt.Manager, revoked Revocations, raw string) error {
	claims, err := tokens.ParseToken(raw)
	if err != nil {
		return apperr.Unauthorized("error.invalid_token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return apperr.Unauthorized("error.invalid_token")
	}
	if revoked != nil && revoked.IsBlacklisted(c.Request.Context(), claims.ID) {
		return apperr.Unauthorized("error.invalid_token")
	}

	c.Set(UserIDKey, userID)
	c.Set(RoleKey, models.Role(claims.Role))
	c.Set(SessionIDKey, claims.SessionID)
	c.Set(ClaimsKey, claims)
	return nil
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c *gin.Context) uint {
	return c.GetUint(UserIDKey)
}

// Role returns the role carried by the access token.
func Role(c *gin.Context) models.Role {
	if v, ok := c.Get(RoleKey); ok {
		if role, ok := v.(models.Role); ok {
			return role
		}
	}
	return ""
}

// Claims returns the parsed access token claims.
func Claims(c *gin.Context) (*jwt.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
