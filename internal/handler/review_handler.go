package handler

import (
	"net/http"
	"time"

	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type ReviewRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Title  string `json:"title" binding:"max=200"`
	Body   string `json:"body" binding:"max=10000"`
}

func (r ReviewRequest) input() service.ReviewInput {
	return service.ReviewInput{Rating: r.Rating, Title: r.Title, Body: r.Body}
}

type ReviewResponse struct {
	ID        uint        `json:"id"`
	GameID    uint        `json:"game_id"`
	Author    UserSummary `json:"author"`
	Rating    int         `json:"rating"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func newReviewResponse(r models.Review) ReviewResponse {
	return ReviewResponse{
		ID:        r.ID,
		GameID:    r.GameID,
		Author:    newUserSummary(r.Author),
		Rating:    r.Rating,
		Title:     r.Title,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// PaginatedReviewResponse defines the structure for a paginated list of reviews.
type PaginatedReviewResponse struct {
	Data []ReviewResponse `json:"data"`
	Meta PaginationMeta   `json:"meta"`
}

type ReviewQuery struct {
	ListQuery
	Sort string `form:"sort" binding:"omitempty,oneof=-created_at created_at -rating rating"`
}

// endregion

// ReviewHandler serves game reviews.
type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// ListReviews godoc
// @Summary      List a game's reviews
// @Tags         reviews
// @Produce      json
// @Param        id    path      int     true   "Game ID"
// @Param        sort  query     string  false  "-created_at (default) or -rating"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(20)
// @Success      200   {object}  PaginatedReviewResponse
// @Failure      404   {object}  ErrorResponse "Game not found"
// @Router       /games/{id}/reviews [get]
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	gameID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var q ReviewQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.reviews.ListForGame(c.Request.Context(), gameID, q.Sort, q.Page, q.Limit)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Paginate(page, newReviewResponse))
}

// CreateReview godoc
// @Summary      Review a game
// @Description  Each user can review a game once.
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int           true  "Game ID"
// @Param        input body      ReviewRequest true  "Review"
// @Success      201   {object}  ReviewResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse "Game not found"
// @Failure      409   {object}  ErrorResponse "Already reviewed"
// @Router       /games/{id}/reviews [post]
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	gameID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), actor(c), gameID, req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReviewResponse(*review))
}

// UpdateReview godoc
// @Summary      Update a review
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int           true  "Review ID"
// @Param        input body      ReviewRequest true  "Review"
// @Success      200   {object}  ReviewResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /reviews/{id} [put]
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviews.Update(c.Request.Context(), actor(c), id, req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newReviewResponse(*review))
}

// DeleteReview godoc
// @Summary      Delete a review
// @Tags         reviews
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Review ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /reviews/{id} [delete]
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), actor(c), id); err != nil {
		abort(c, err)
		return
	}
	deleted(c, "review")
}
