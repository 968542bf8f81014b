package handler

import (
	"net/http"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/auth"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30,username"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Locale   string `json:"locale" binding:"omitempty,max=8"`
}

type LoginRequest struct {
	Login    string `json:"login" binding:"required,max=255"`
	Password string `json:"password" binding:"required,max=72"`
	OTPCode  string `json:"otp_code" binding:"omitempty,len=6,numeric"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,max=72"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72,nefield=CurrentPassword"`
}

type OTPRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User   PrivateUserResponse `json:"user"`
	Tokens *service.TokenPair  `json:"tokens"`
}

type SessionResponse struct {
	ID         string    `json:"id"`
	UserAgent  string    `json:"user_agent"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

// endregion

// AuthHandler serves registration, login and session management.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{UserAgent: c.Request.UserAgent(), IP: c.ClientIP()}
}

func newAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{User: newPrivateUserResponse(&service.Profile{User: res.User}), Tokens: res.Tokens}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates an account and starts a session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body      RegisterRequest true "Account details"
// @Success      201   {object}  AuthResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse "Username or email already taken"
// @Failure      429   {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Locale:   req.Locale,
	}, clientInfo(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAuthResponse(res))
}

// Login godoc
// @Summary      Log in
// @Description  Authenticates by username or email. Accounts with two-factor auth also need otp_code.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body      LoginRequest true "Credentials"
// @Success      200   {object}  AuthResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse "Invalid credentials or OTP_REQUIRED"
// @Failure      429   {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Login:    req.Login,
		Password: req.Password,
		OTPCode:  req.OTPCode,
	}, clientInfo(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newAuthResponse(res))
}

// Refresh godoc
// @Summary      Rotate a refresh token
// @Description  Exchanges a refresh token for a new token pair. Reusing a token revokes its whole family.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body      RefreshRequest true "Refresh token"
// @Success      200   {object}  service.TokenPair
// @Failure      401   {object}  ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, clientInfo(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the current session and the access token.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MessageResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := auth.Claims(c)
	if !ok {
		abort(c, apperr.Unauthorized("error.unauthorized"))
		return
	}
	if err := h.auth.Logout(c.Request.Context(), auth.UserID(c), claims); err != nil {
		abort(c, err)
		return
	}
	message(c, http.StatusOK, "message.logged_out", nil)
}

// LogoutAll godoc
// @Summary      Log out everywhere
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MessageResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	if _, err := h.auth.LogoutAll(c.Request.Context(), auth.UserID(c)); err != nil {
		abort(c, err)
		return
	}
	message(c, http.StatusOK, "message.sessions_revoked", nil)
}

// ListSessions godoc
// @Summary      List active sessions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   SessionResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/sessions [get]
func (h *AuthHandler) ListSessions(c *gin.Context) {
	sessions, err := h.auth.Sessions(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abort(c, err)
		return
	}
	current := c.GetString(auth.SessionIDKey)
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionResponse{
			ID:         s.ID,
			UserAgent:  s.UserAgent,
			IP:         s.IP,
			CreatedAt:  s.CreatedAt,
			LastUsedAt: s.LastUsedAt,
			ExpiresAt:  s.ExpiresAt,
			Current:    s.ID == current,
		})
	}
	c.JSON(http.StatusOK, out)
}

// RevokeSession godoc
// @Summary      Revoke a session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /auth/sessions/{id} [delete]
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	if err := h.auth.RevokeSession(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	message(c, http.StatusOK, "message.session_revoked", nil)
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Changes the password and signs out every other session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      ChangePasswordRequest true "Passwords"
// @Success      200   {object}  MessageResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /auth/password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.auth.ChangePassword(c.Request.Context(), auth.UserID(c), c.GetString(auth.SessionIDKey), req.CurrentPassword, req.NewPassword)
	if err != nil {
		abort(c, err)
		return
	}
	message(c, http.StatusOK, "message.password_changed", nil)
}

// SetupTwoFactor godoc
// @Summary      Start two-factor setup
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  service.TOTPSetup
// @Failure      409  {object}  ErrorResponse "Already enabled"
// @Router       /auth/2fa/setup [post]
func (h *AuthHandler) SetupTwoFactor(c *gin.Context) {
	setup, err := h.auth.SetupTOTP(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, setup)
}

// EnableTwoFactor godoc
// @Summary      Enable two-factor auth
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      OTPRequest true "Current code"
// @Success      200   {object}  MessageResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /auth/2fa/enable [post]
func (h *AuthHandler) EnableTwoFactor(c *gin.Context) {
	var req OTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.EnableTOTP(c.Request.Context(), auth.UserID(c), req.Code); err != nil {
		abort(c, err)
		return
	}
	message(c, http.StatusOK, "message.totp_enabled", nil)
}

// DisableTwoFactor godoc
// @Summary      Disable two-factor auth
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      OTPRequest true "Current code"
// @Success      200   {object}  MessageResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /auth/2fa/disable [post]
func (h *AuthHandler) DisableTwoFactor(c *gin.Context) {
	var req OTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.DisableTOTP(c.Request.Context(), auth.UserID(c), req.Code); err != nil {
		abort(c, err)
		return
	}
	message(c, http.StatusOK, "message.totp_disabled", nil)
}
