package handler

import (
	"net/http"
	"time"

	"gamehub/backend/internal/auth"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// UserSummary is the author/actor block embedded in other resources.
type UserSummary struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func newUserSummary(u models.User) UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// PublicUserResponse is what other users see of a profile.
type PublicUserResponse struct {
	ID             uint      `json:"id"`
	Username       string    `json:"username"`
	Bio            string    `json:"bio"`
	AvatarURL      string    `json:"avatar_url"`
	Role           string    `json:"role"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	PostsCount     int64     `json:"posts_count"`
	IsFollowing    bool      `json:"is_following"`
	IsFollowedBy   bool      `json:"is_followed_by"`
	IsBlocked      bool      `json:"is_blocked"`
	CreatedAt      time.Time `json:"created_at"`
}

func newPublicUserResponse(p *service.PublicProfile) PublicUserResponse {
	return PublicUserResponse{
		ID:             p.User.ID,
		Username:       p.User.Username,
		Bio:            p.User.Bio,
		AvatarURL:      p.User.AvatarURL,
		Role:           string(p.User.Role),
		FollowersCount: p.FollowersCount,
		FollowingCount: p.FollowingCount,
		PostsCount:     p.PostsCount,
		IsFollowing:    p.IsFollowing,
		IsFollowedBy:   p.IsFollowedBy,
		IsBlocked:      p.IsBlocked,
		CreatedAt:      p.User.CreatedAt,
	}
}

// PrivateUserResponse is the caller's own profile.
type PrivateUserResponse struct {
	ID               uint      `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	Bio              string    `json:"bio"`
	AvatarURL        string    `json:"avatar_url"`
	Locale           string    `json:"locale"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	FollowersCount   int64     `json:"followers_count"`
	FollowingCount   int64     `json:"following_count"`
	PostsCount       int64     `json:"posts_count"`
	CreatedAt        time.Time `json:"created_at"`
}

func newPrivateUserResponse(p *service.Profile) PrivateUserResponse {
	return PrivateUserResponse{
		ID:               p.User.ID,
		Username:         p.User.Username,
		Email:            p.User.Email,
		Role:             string(p.User.Role),
		Bio:              p.User.Bio,
		AvatarURL:        p.User.AvatarURL,
		Locale:           p.User.Locale,
		TwoFactorEnabled: p.User.TOTPEnabled,
		FollowersCount:   p.FollowersCount,
		FollowingCount:   p.FollowingCount,
		PostsCount:       p.PostsCount,
		CreatedAt:        p.User.CreatedAt,
	}
}

// PaginatedUserResponse defines the structure for a paginated list of users.
type PaginatedUserResponse struct {
	Data []UserSummary  `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type UpdateProfileRequest struct {
	Bio       *string `json:"bio" binding:"omitempty,max=2000"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,max=512"`
	Locale    *string `json:"locale" binding:"omitempty,max=8"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user moderator admin"`
}

type RoleResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type UserSearchQuery struct {
	ListQuery
	Q string `form:"q" binding:"max=100"`
}

// endregion

// UserHandler serves profiles, user search and role changes.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// SearchUsers godoc
// @Summary      Search users
// @Description  Searches users by username. Users in a block relation with the caller are hidden.
// @Tags         users
// @Produce      json
// @Param        q     query     string  false  "Username substring"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(20)
// @Success      200   {object}  PaginatedUserResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /users [get]
func (h *UserHandler) SearchUsers(c *gin.Context) {
	var q UserSearchQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.users.Search(c.Request.Context(), auth.UserID(c), q.Q, q.Page, q.Limit)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Paginate(page, newUserSummary))
}

// GetMe godoc
// @Summary      Get current user's profile
// @Description  Returns the private profile of the authenticated user.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	profile, err := h.users.GetPrivate(c.Request.Context(), auth.UserID(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newPrivateUserResponse(profile))
}

// UpdateMe godoc
// @Summary      Update current user's profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      UpdateProfileRequest true "Fields to change"
// @Success      200   {object}  PrivateUserResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /users/me [patch]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.users.UpdateProfile(c.Request.Context(), auth.UserID(c), service.UpdateProfileInput{
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Locale:    req.Locale,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newPrivateUserResponse(profile))
}

// GetUserByID godoc
// @Summary      Get a user's public profile
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      404  {object}  ErrorResponse "User not found"
// @Router       /users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	profile, err := h.users.GetPublic(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newPublicUserResponse(profile))
}

// UpdateRole godoc
// @Summary      Change a user's role
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int               true  "User ID"
// @Param        input body      UpdateRoleRequest true  "New role"
// @Success      200   {object}  RoleResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse "Admin access required"
// @Failure      404   {object}  ErrorResponse
// @Router       /admin/users/{id}/role [patch]
func (h *UserHandler) UpdateRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.SetRole(c.Request.Context(), actor(c), id, models.Role(req.Role))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, RoleResponse{ID: user.ID, Username: user.Username, Role: string(user.Role)})
}
