package handler

import (
	"context"
	"net/http"

	"gamehub/backend/internal/auth"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// RelationStatus reports the caller's relation to a user after a change.
type RelationStatus struct {
	Following bool `json:"following"`
	Blocked   bool `json:"blocked"`
}

// RelationHandler serves follows and blocks.
type RelationHandler struct {
	relations *service.RelationService
}

func NewRelationHandler(relations *service.RelationService) *RelationHandler {
	return &RelationHandler{relations: relations}
}

// Follow godoc
// @Summary      Follow a user
// @Tags         relations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      201  {object}  RelationStatus
// @Failure      400  {object}  ErrorResponse "Cannot follow yourself"
// @Failure      403  {object}  ErrorResponse "Blocked"
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Already following"
// @Router       /users/{id}/follow [post]
func (h *RelationHandler) Follow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.relations.Follow(c.Request.Context(), auth.UserID(c), id); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, RelationStatus{Following: true})
}

// Unfollow godoc
// @Summary      Unfollow a user
// @Tags         relations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse "Not following"
// @Router       /users/{id}/follow [delete]
func (h *RelationHandler) Unfollow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.relations.Unfollow(c.Request.Context(), auth.UserID(c), id); err != nil {
		abort(c, err)
		return
	}
	message(c, http.StatusOK, "message.unfollowed", nil)
}

// Block godoc
// @Summary      Block a user
// @Description  Blocks a user and removes follows in both directions.
// @Tags         relations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      201  {object}  RelationStatus
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Already blocked"
// @Router       /users/{id}/block [post]
func (h *RelationHandler) Block(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.relations.Block(c.Request.Context(), auth.UserID(c), id); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, RelationStatus{Blocked: true})
}

// Unblock godoc
// @Summary      Unblock a user
// @Tags         relations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse "Not blocked"
// @Router       /users/{id}/block [delete]
func (h *RelationHandler) Unblock(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.relations.Unblock(c.Request.Context(), auth.UserID(c), id); err != nil {
		abort(c, err)
		return
	}
	message(c, http.StatusOK, "message.unblocked", nil)
}

// Followers godoc
// @Summary      List a user's followers
// @Tags         relations
// @Produce      json
// @Param        id    path      int  true   "User ID"
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page" default(20)
// @Success      200   {object}  PaginatedUserResponse
// @Router       /users/{id}/followers [get]
func (h *RelationHandler) Followers(c *gin.Context) {
	h.listUsers(c, h.relations.Followers)
}

// Following godoc
// @Summary      List who a user follows
// @Tags         relations
// @Produce      json
// @Param        id    path      int  true   "User ID"
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page" default(20)
// @Success      200   {object}  PaginatedUserResponse
// @Router       /users/{id}/following [get]
func (h *RelationHandler) Following(c *gin.Context) {
	h.listUsers(c, h.relations.Following)
}

// Blocked godoc
// @Summary      List blocked users
// @Tags         relations
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page" default(20)
// @Success      200   {object}  PaginatedUserResponse
// @Router       /users/me/blocks [get]
func (h *RelationHandler) Blocked(c *gin.Context) {
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.relations.Blocked(c.Request.Context(), auth.UserID(c), q.Page, q.Limit)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Paginate(page, newUserSummary))
}

type userLister func(ctx context.Context, userID uint, page, limit int) (*repository.Page[models.User], error)

func (h *RelationHandler) listUsers(c *gin.Context, list userLister) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := list(c.Request.Context(), id, q.Page, q.Limit)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Paginate(page, newUserSummary))
}
