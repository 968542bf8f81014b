package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClient = ClientInfo{UserAgent: "go-test", IP: "127.0.0.1"}

func register(t *testing.T, env *testEnv, username string) *AuthResult {
	t.Helper()
	res, err := env.svc.Auth.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	}, testClient)
	require.NoError(t, err)
	return res
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	res := register(t, env, "Alice")
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.NotEqual(t, "password123", res.User.PasswordHash)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.Equal(t, "Bearer", res.Tokens.TokenType)

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		_, err := env.svc.Auth.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "password123"}, testClient)
		assertKind(t, err, apperr.KindConflict)
		appErr, _ := apperr.As(err)
		assert.Equal(t, "error.user_exists", appErr.Key)
	})

	t.Run("unsupported locale is rejected", func(t *testing.T) {
		_, err := env.svc.Auth.Register(ctx, RegisterInput{
			Username: "klingon", Email: "klingon@example.com", Password: "password123", Locale: "tlh",
		}, testClient)
		assertKind(t, err, apperr.KindValidation)
		appErr, _ := apperr.As(err)
		assert.Equal(t, "error.unsupported_locale", appErr.Key)

		var count int64
		require.NoError(t, env.db.Model(&models.User{}).Where("username = ?", "klingon").Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("supported locale is stored", func(t *testing.T) {
		out, err := env.svc.Auth.Register(ctx, RegisterInput{
			Username: "pierre", Email: "pierre@example.com", Password: "password123", Locale: "fr",
		}, testClient)
		require.NoError(t, err)
		assert.Equal(t, "fr", out.User.Locale)
	})

	t.Run("login by email", func(t *testing.T) {
		out, err := env.svc.Auth.Login(ctx, LoginInput{Login: "ALICE@example.com", Password: "password123"}, testClient)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, out.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.svc.Auth.Login(ctx, LoginInput{Login: "alice", Password: "nope"}, testClient)
		assertKind(t, err, apperr.KindUnauthorized)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.svc.Auth.Login(ctx, LoginInput{Login: "ghost", Password: "password123"}, testClient)
		assertKind(t, err, apperr.KindUnauthorized)
	})
}

func TestAuth_RefreshRotation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	res := register(t, env, "alice")

	rotated, err := env.svc.Auth.Refresh(ctx, res.Tokens.RefreshToken, testClient)
	require.NoError(t, err)
	assert.NotEqual(t, res.Tokens.RefreshToken, rotated.RefreshToken)
	assert.NotEqual(t, res.Tokens.SessionID, rotated.SessionID)

	var old models.Session
	require.NoError(t, env.db.First(&old, "id = ?", res.Tokens.SessionID).Error)
	require.NotNil(t, old.RevokedAt)
	require.NotNil(t, old.ReplacedByID)
	assert.Equal(t, rotated.SessionID, *old.ReplacedByID)

	t.Run("reusing a rotated token revokes the family", func(t *testing.T) {
		_, err := env.svc.Auth.Refresh(ctx, res.Tokens.RefreshToken, testClient)
		assertKind(t, err, apperr.KindUnauthorized)
		appErr, _ := apperr.As(err)
		assert.Equal(t, "error.refresh_token_reused", appErr.Key)

		_, err = env.svc.Auth.Refresh(ctx, rotated.RefreshToken, testClient)
		assertKind(t, err, apperr.KindUnauthorized)

		sessions, err := env.svc.Auth.Sessions(ctx, res.User.ID)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := env.svc.Auth.Refresh(ctx, "garbage", testClient)
		appErr, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, "error.invalid_refresh_token", appErr.Key)
	})
}

func TestAuth_RefreshExpired(t *testing.T) {
	env := newEnv(t)
	res := register(t, env, "alice")

	env.svc.Auth.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err := env.svc.Auth.Refresh(context.Background(), res.Tokens.RefreshToken, testClient)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "error.invalid_refresh_token", appErr.Key)
}

func TestAuth_ConcurrentRefreshSingleWinner(t *testing.T) {
	env := newEnv(t)
	res := register(t, env, "alice")

	const workers = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.Auth.Refresh(context.Background(), res.Tokens.RefreshToken, testClient); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, successes, 1)
}

func TestAuth_SessionsAndPassword(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	first := register(t, env, "alice")
	second, err := env.svc.Auth.Login(ctx, LoginInput{Login: "alice", Password: "password123"}, testClient)
	require.NoError(t, err)

	sessions, err := env.svc.Auth.Sessions(ctx, first.User.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	t.Run("other users cannot revoke a session", func(t *testing.T) {
		bob := register(t, env, "bob")
		err := env.svc.Auth.RevokeSession(ctx, bob.User.ID, first.Tokens.SessionID)
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("wrong current password", func(t *testing.T) {
		err := env.svc.Auth.ChangePassword(ctx, first.User.ID, first.Tokens.SessionID, "wrong", "newpassword1")
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("password change signs out other sessions", func(t *testing.T) {
		require.NoError(t, env.svc.Auth.ChangePassword(ctx, first.User.ID, first.Tokens.SessionID, "password123", "newpassword1"))

		sessions, err := env.svc.Auth.Sessions(ctx, first.User.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, first.Tokens.SessionID, sessions[0].ID)

		_, err = env.svc.Auth.Refresh(ctx, second.Tokens.RefreshToken, testClient)
		assertKind(t, err, apperr.KindUnauthorized)

		_, err = env.svc.Auth.Login(ctx, LoginInput{Login: "alice", Password: "newpassword1"}, testClient)
		assert.NoError(t, err)
	})

	t.Run("logout all", func(t *testing.T) {
		n, err := env.svc.Auth.LogoutAll(ctx, first.User.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))
		sessions, err := env.svc.Auth.Sessions(ctx, first.User.ID)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})
}

func TestAuth_TwoFactor(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	res := register(t, env, "alice")
	userID := res.User.ID

	err := env.svc.Auth.EnableTOTP(ctx, userID, "123456")
	assertKind(t, err, apperr.KindValidation)

	setup, err := env.svc.Auth.SetupTOTP(ctx, userID)
	require.NoError(t, err)
	assert.Contains(t, setup.URL, "otpauth://totp/")

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.svc.Auth.EnableTOTP(ctx, userID, code))

	_, err = env.svc.Auth.SetupTOTP(ctx, userID)
	assertKind(t, err, apperr.KindConflict)

	t.Run("login requires the code", func(t *testing.T) {
		_, err := env.svc.Auth.Login(ctx, LoginInput{Login: "alice", Password: "password123"}, testClient)
		appErr, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, "OTP_REQUIRED", appErr.Code)

		_, err = env.svc.Auth.Login(ctx, LoginInput{Login: "alice", Password: "password123", OTPCode: "000000"}, testClient)
		appErr, ok = apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, "error.invalid_otp", appErr.Key)

		_, err = env.svc.Auth.Login(ctx, LoginInput{Login: "alice", Password: "password123", OTPCode: code}, testClient)
		assert.NoError(t, err)
	})

	t.Run("disable", func(t *testing.T) {
		require.NoError(t, env.svc.Auth.DisableTOTP(ctx, userID, code))
		_, err := env.svc.Auth.Login(ctx, LoginInput{Login: "alice", Password: "password123"}, testClient)
		assert.NoError(t, err)
	})
}
