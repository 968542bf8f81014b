package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/i18n"
	"gamehub/backend/internal/middleware"
	"gamehub/backend/internal/models"
	"gamehub/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type revokedSet map[string]bool

func (r revokedSet) IsBlacklisted(_ context.Context, jti string) bool { return r[jti] }

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	b, err := i18n.New("en")
	require.NoError(t, err)
	r := gin.New()
	r.Use(i18n.Middleware(b), middleware.ErrorHandler(zaptest.NewLogger(t)))
	return r
}

func do(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := jwt.NewManager("secret", "gamehub", time.Minute)
	good, claims, err := tokens.GenerateToken(7, "moderator", "sid-1")
	require.NoError(t, err)
	revokedToken, revokedClaims, err := tokens.GenerateToken(7, "user", "sid-2")
	require.NoError(t, err)
	other := jwt.NewManager("other-secret", "gamehub", time.Minute)
	forged, _, err := other.GenerateToken(7, "admin", "sid-3")
	require.NoError(t, err)

	r := newEngine(t)
	r.GET("/", AuthMiddleware(tokens, revokedSet{revokedClaims.ID: true}), func(c *gin.Context) {
		got, ok := Claims(c)
		require.True(t, ok)
		assert.Equal(t, claims.ID, got.ID)
		assert.Equal(t, models.RoleModerator, Role(c))
		assert.Equal(t, "sid-1", c.GetString(SessionIDKey))
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})

	assert.Equal(t, http.StatusOK, do(r, good).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, forged).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, revokedToken).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "not-a-jwt").Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	tokens := jwt.NewManager("secret", "gamehub", time.Minute)
	good, _, err := tokens.GenerateToken(9, "user", "sid")
	require.NoError(t, err)

	r := newEngine(t)
	r.GET("/", OptionalAuthMiddleware(tokens, nil), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", UserID(c))
	})

	assert.Equal(t, "9", do(r, good).Body.String())
	assert.Equal(t, "0", do(r, "").Body.String())
	assert.Equal(t, "0", do(r, "garbage").Body.String())
}

func TestRequireRoles(t *testing.T) {
	roles := map[uint]models.Role{1: models.RoleAdmin, 2: models.RoleUser}
	lookup := func(_ context.Context, id uint) (models.Role, error) {
		role, ok := roles[id]
		if !ok {
			return "", apperr.NotFound("user")
		}
		return role, nil
	}

	tests := []struct {
		name   string
		userID uint
		want   int
	}{
		{"admin passes", 1, http.StatusOK},
		{"user is forbidden", 2, http.StatusForbidden},
		{"deleted user", 3, http.StatusUnauthorized},
		{"anonymous", 0, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(t)
			r.GET("/", func(c *gin.Context) {
				if tt.userID != 0 {
					c.Set(UserIDKey, tt.userID)
				}
			}, RequireRoles(lookup, models.RoleAdmin), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			assert.Equal(t, tt.want, do(r, "").Code)
		})
	}
}
