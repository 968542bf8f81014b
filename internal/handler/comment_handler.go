package handler

import (
	"net/http"
	"time"

	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type CommentRequest struct {
	Content  string `json:"content" binding:"required,max=5000"`
	ParentID *uint  `json:"parent_id"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

type CommentResponse struct {
	ID        uint              `json:"id"`
	PostID    uint              `json:"post_id"`
	ParentID  *uint             `json:"parent_id,omitempty"`
	Author    UserSummary       `json:"author"`
	Content   string            `json:"content"`
	Replies   []CommentResponse `json:"replies,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func newCommentResponse(cm models.Comment) CommentResponse {
	resp := CommentResponse{
		ID:        cm.ID,
		PostID:    cm.PostID,
		ParentID:  cm.ParentID,
		Author:    newUserSummary(cm.Author),
		Content:   cm.Content,
		CreatedAt: cm.CreatedAt,
		UpdatedAt: cm.UpdatedAt,
	}
	for _, reply := range cm.Replies {
		resp.Replies = append(resp.Replies, newCommentResponse(reply))
	}
	return resp
}

// PaginatedCommentResponse defines the structure for a paginated list of comments.
type PaginatedCommentResponse struct {
	Data []CommentResponse `json:"data"`
	Meta PaginationMeta    `json:"meta"`
}

// endregion

// CommentHandler serves post comments.
type CommentHandler struct {
	comments *service.CommentService
}

func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// ListComments godoc
// @Summary      List a post's comments
// @Description  Top-level comments, oldest first, each with its replies.
// @Tags         comments
// @Produce      json
// @Param        id    path      int  true   "Post ID"
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page" default(20)
// @Success      200   {object}  PaginatedCommentResponse
// @Failure      404   {object}  ErrorResponse "Post not found"
// @Router       /posts/{id}/comments [get]
func (h *CommentHandler) ListComments(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.comments.ListForPost(c.Request.Context(), actor(c), postID, q.Page, q.Limit)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Paginate(page, newCommentResponse))
}

// CreateComment godoc
// @Summary      Comment on a post
// @Description  parent_id replies to a top-level comment of the same post.
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Post ID"
// @Param        input body      CommentRequest true  "Comment"
// @Success      201   {object}  CommentResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse "Blocked"
// @Failure      404   {object}  ErrorResponse
// @Router       /posts/{id}/comments [post]
func (h *CommentHandler) CreateComment(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.comments.Create(c.Request.Context(), actor(c), postID, service.CommentInput{
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCommentResponse(*comment))
}

// UpdateComment godoc
// @Summary      Edit a comment
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Comment ID"
// @Param        input body      UpdateCommentRequest true  "New content"
// @Success      200   {object}  CommentResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /comments/{id} [put]
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.comments.Update(c.Request.Context(), actor(c), id, req.Content)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newCommentResponse(*comment))
}

// DeleteComment godoc
// @Summary      Delete a comment
// @Description  Deleting a top-level comment also deletes its replies.
// @Tags         comments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Comment ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /comments/{id} [delete]
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), actor(c), id); err != nil {
		abort(c, err)
		return
	}
	deleted(c, "comment")
}
