package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/observability"
	"gamehub/backend/internal/repository"
	"gamehub/backend/pkg/jwt"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const refreshTokenBytes = 32

// errRefreshRace signals that a concurrent request rotated the same session first.
var errRefreshRace = errors.New("refresh token rotated concurrently")

// ClientInfo identifies the device a session was created from.
type ClientInfo struct {
	UserAgent string
	IP        string
}

// TokenPair is returned by every operation that starts or rotates a session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	SessionID    string `json:"session_id"`
}

type AuthResult struct {
	User   *models.User
	Tokens *TokenPair
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Locale   string
}

type LoginInput struct {
	Login    string
	Password string
	OTPCode  string
}

// TOTPSetup is the provisioning data shown to the user before enabling two-factor auth.
type TOTPSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

type AuthOptions struct {
	RefreshTTL    time.Duration
	TOTPIssuer    string
	BcryptCost    int
	DefaultLocale string
}

// AuthService owns accounts, sessions and tokens.
type AuthService struct {
	db        *gorm.DB
	users     *repository.UserRepository
	sessions  *repository.SessionRepository
	tokens    *jwt.Manager
	cache     *cache.Cache
	opts      AuthOptions
	supported func(string) bool
	log       *zap.Logger
	now       func() time.Time
}

func NewAuthService(db *gorm.DB, users *repository.UserRepository, sessions *repository.SessionRepository,
	tokens *jwt.Manager, c *cache.Cache, opts AuthOptions, supported func(string) bool, log *zap.Logger) *AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = "en"
	}
	return &AuthService{
		db:        db,
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		cache:     c,
		opts:      opts,
		supported: supported,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, client ClientInfo) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	locale := in.Locale
	if locale == "" {
		locale = s.opts.DefaultLocale
	} else if s.supported != nil && !s.supported(locale) {
		return nil, apperr.Validation("error.unsupported_locale", map[string]string{"locale": locale})
	}

	taken, err := s.users.Taken(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("error.user_exists", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Locale:       locale,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("error.user_exists", nil)
		}
		return nil, err
	}
	observability.RegistrationsTotal.Inc()
	s.log.Info("user registered", zap.Uint("user_id", user.ID))

	tokens, err := s.startSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Login checks credentials, and the TOTP code when two-factor auth is on.
func (s *AuthService) Login(ctx context.Context, in LoginInput, client ClientInfo) (*AuthResult, error) {
	user, err := s.users.FindByLogin(ctx, in.Login)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("error.invalid_credentials")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, apperr.Unauthorized("error.invalid_credentials")
	}

	if user.TOTPEnabled {
		if in.OTPCode == "" {
			return nil, apperr.Unauthorized("error.otp_required").WithCode("OTP_REQUIRED")
		}
		if !totp.Validate(in.OTPCode, user.TOTPSecret) {
			return nil, apperr.Unauthorized("error.invalid_otp")
		}
	}

	tokens, err := s.startSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. A token can be exchanged
// once; presenting it again revokes every session of its family.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*TokenPair, error) {
	now := s.now()
	current, err := s.sessions.FindByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			observability.TokenRefreshesTotal.WithLabelValues("invalid").Inc()
			return nil, apperr.Unauthorized("error.invalid_refresh_token")
		}
		return nil, err
	}
	if current.RevokedAt != nil {
		return nil, s.reuseDetected(ctx, current, now)
	}
	if !now.Before(current.ExpiresAt) {
		observability.TokenRefreshesTotal.WithLabelValues("invalid").Inc()
		return nil, apperr.Unauthorized("error.invalid_refresh_token")
	}

	user, err := s.users.FindByID(ctx, current.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("error.invalid_refresh_token")
		}
		return nil, err
	}

	raw, err := newRefreshToken()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	next := s.newSession(user.ID, current.FamilyID, raw, client, now)

	err = repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		sessions := s.sessions.WithTx(tx)
		ok, err := sessions.RevokeIfActive(ctx, current.ID, &next.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errRefreshRace
		}
		return sessions.Create(ctx, next)
	})
	if errors.Is(err, errRefreshRace) {
		return nil, s.reuseDetected(ctx, current, now)
	}
	if err != nil {
		return nil, err
	}

	observability.TokenRefreshesTotal.WithLabelValues("ok").Inc()
	return s.issue(user, next.ID, raw)
}

func (s *AuthService) reuseDetected(ctx context.Context, session *models.Session, now time.Time) error {
	observability.TokenRefreshesTotal.WithLabelValues("reused").Inc()
	revoked, err := s.sessions.RevokeFamily(ctx, session.FamilyID, now)
	if err != nil {
		return err
	}
	s.log.Warn("refresh token reuse detected",
		zap.Uint("user_id", session.UserID),
		zap.String("family_id", session.FamilyID),
		zap.Int64("revoked", revoked),
	)
	return apperr.Unauthorized("error.refresh_token_reused")
}

// Logout revokes the current session and blacklists the access token until it expires.
func (s *AuthService) Logout(ctx context.Context, userID uint, claims *jwt.Claims) error {
	if claims.SessionID != "" {
		if err := s.sessions.Revoke(ctx, claims.SessionID, userID, s.now()); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
	}
	if claims.ExpiresAt != nil {
		if err := s.cache.Blacklist(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			s.log.Warn("failed to blacklist access token", zap.Error(err))
		}
	}
	return nil
}

// LogoutAll revokes every session of the user. Issued access tokens stay valid until they expire.
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) (int64, error) {
	return s.sessions.RevokeUser(ctx, userID, "", s.now())
}

func (s *AuthService) Sessions(ctx context.Context, userID uint) ([]models.Session, error) {
	return s.sessions.ListActive(ctx, userID, s.now())
}

// RevokeSession revokes one of the user's own sessions.
func (s *AuthService) RevokeSession(ctx context.Context, userID uint, sessionID string) error {
	return s.sessions.Revoke(ctx, sessionID, userID, s.now())
}

// ChangePassword replaces the password and signs out every other session.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentSessionID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return apperr.Validation("error.invalid_password", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.opts.BcryptCost)
	if err != nil {
		return apperr.Internal(err)
	}

	return repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Updates(ctx, user, map[string]any{"password_hash": string(hash)}); err != nil {
			return err
		}
		_, err := s.sessions.WithTx(tx).RevokeUser(ctx, userID, currentSessionID, s.now())
		return err
	})
}

// SetupTOTP generates a new secret. Two-factor auth stays off until EnableTOTP.
func (s *AuthService) SetupTOTP(ctx context.Context, userID uint) (*TOTPSetup, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, apperr.Conflict("error.totp_already_enabled", nil)
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.opts.TOTPIssuer, AccountName: user.Email})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.users.Updates(ctx, user, map[string]any{"totp_secret": key.Secret()}); err != nil {
		return nil, err
	}
	return &TOTPSetup{Secret: key.Secret(), URL: key.URL()}, nil
}

func (s *AuthService) EnableTOTP(ctx context.Context, userID uint, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPEnabled {
		return apperr.Conflict("error.totp_already_enabled", nil)
	}
	if user.TOTPSecret == "" {
		return apperr.Validation("error.totp_not_setup", nil)
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperr.Validation("error.invalid_otp", nil)
	}
	return s.users.Updates(ctx, user, map[string]any{"totp_enabled": true})
}

func (s *AuthService) DisableTOTP(ctx context.Context, userID uint, code string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return apperr.Validation("error.totp_not_enabled", nil)
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperr.Validation("error.invalid_otp", nil)
	}
	return s.users.Updates(ctx, user, map[string]any{"totp_enabled": false, "totp_secret": ""})
}

func (s *AuthService) startSession(ctx context.Context, user *models.User, client ClientInfo) (*TokenPair, error) {
	raw, err := newRefreshToken()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	session := s.newSession(user.ID, uuid.NewString(), raw, client, s.now())
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return s.issue(user, session.ID, raw)
}

func (s *AuthService) newSession(userID uint, familyID, rawToken string, client ClientInfo, now time.Time) *models.Session {
	return &models.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		FamilyID:   familyID,
		TokenHash:  hashToken(rawToken),
		UserAgent:  truncate(client.UserAgent, 255),
		IP:         truncate(client.IP, 64),
		ExpiresAt:  now.Add(s.opts.RefreshTTL),
		LastUsedAt: now,
		CreatedAt:  now,
	}
}

func (s *AuthService) issue(user *models.User, sessionID, refreshToken string) (*TokenPair, error) {
	access, _, err := s.tokens.GenerateToken(user.ID, string(user.Role), sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.TTL().Seconds()),
		SessionID:    sessionID,
	}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
