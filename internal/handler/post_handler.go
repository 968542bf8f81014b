package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/auth"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type PostRequest struct {
	Title      string `json:"title" binding:"required,min=3,max=200"`
	Content    string `json:"content" binding:"required,max=50000"`
	Status     string `json:"status" binding:"omitempty,oneof=draft published"`
	GameID     *uint  `json:"game_id"`
	CategoryID *uint  `json:"category_id"`
	TagIDs     []uint `json:"tag_ids" binding:"max=10"`
	CoverURL   string `json:"cover_url" binding:"omitempty,max=512"`
}

func (r PostRequest) input() service.PostInput {
	status := models.PostStatus(r.Status)
	if status == "" {
		status = models.PostDraft
	}
	return service.PostInput{
		Title:      r.Title,
		Content:    r.Content,
		Status:     status,
		GameID:     r.GameID,
		CategoryID: r.CategoryID,
		TagIDs:     r.TagIDs,
		CoverURL:   r.CoverURL,
	}
}

type PostResponse struct {
	ID            uint              `json:"id"`
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Status        string            `json:"status"`
	PublishedAt   *time.Time        `json:"published_at,omitempty"`
	Author        UserSummary       `json:"author"`
	Game          *GameSummary      `json:"game,omitempty"`
	Category      *CategoryResponse `json:"category,omitempty"`
	Tags          []TagResponse     `json:"tags"`
	CoverURL      string            `json:"cover_url,omitempty"`
	LikesCount    int               `json:"likes_count"`
	CommentsCount int               `json:"comments_count"`
	Liked         bool              `json:"liked"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func newPostResponse(p models.Post, liked map[uint]bool) PostResponse {
	return PostResponse{
		ID:            p.ID,
		Title:         p.Title,
		Content:       p.Content,
		Status:        string(p.Status),
		PublishedAt:   p.PublishedAt,
		Author:        newUserSummary(p.Author),
		Game:          newGameSummary(p.Game),
		Category:      newCategoryRef(p.Category),
		Tags:          newTagResponses(p.Tags),
		CoverURL:      p.CoverURL,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		Liked:         liked[p.ID],
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// PaginatedPostResponse defines the structure for a paginated list of posts.
type PaginatedPostResponse struct {
	Data []PostResponse `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type PostQuery struct {
	ListQuery
	Q        string `form:"q" binding:"max=100"`
	GameID   *uint  `form:"game_id"`
	Category string `form:"category" binding:"omitempty,slug"`
	Tag      string `form:"tag" binding:"omitempty,slug"`
	// AuthorID is a user id or "me".
	AuthorID string `form:"author_id"`
	Sort     string `form:"sort" binding:"omitempty,oneof=-published_at published_at -likes -comments -created_at"`
}

// endregion

// PostHandler serves posts, likes and the feed.
type PostHandler struct {
	posts *service.PostService
}

func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

func (h *PostHandler) renderList(c *gin.Context, list *service.PostList, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Paginate(list.Page, func(p models.Post) PostResponse { return newPostResponse(p, list.Liked) }))
}

// GetPosts godoc
// @Summary      Search posts
// @Description  Lists published posts. author_id=me lists the caller's posts, drafts included.
// @Tags         posts
// @Produce      json
// @Param        q         query     string  false  "Title or content"
// @Param        game_id   query     int     false  "Game ID"
// @Param        category  query     string  false  "Category slug"
// @Param        tag       query     string  false  "Tag slug"
// @Param        author_id query     string  false  "Author ID or me"
// @Param        sort      query     string  false  "-published_at (default), -likes or -comments"
// @Param        page      query     int     false  "Page number" default(1)
// @Param        limit     query     int     false  "Items per page" default(20)
// @Success      200       {object}  PaginatedPostResponse
// @Failure      400       {object}  ErrorResponse
// @Router       /posts [get]
func (h *PostHandler) GetPosts(c *gin.Context) {
	var q PostQuery
	if !bindQuery(c, &q) {
		return
	}
	filter := service.PostFilter{
		Query:        q.Q,
		GameID:       q.GameID,
		CategorySlug: q.Category,
		TagSlug:      q.Tag,
		Sort:         q.Sort,
		Page:         q.Page,
		Limit:        q.Limit,
	}
	switch q.AuthorID {
	case "":
	case "me":
		filter.Mine = true
	default:
		id, err := strconv.ParseUint(q.AuthorID, 10, 32)
		if err != nil {
			abort(c, apperr.Validation("error.invalid_query", map[string]string{"param": "author_id"}))
			return
		}
		authorID := uint(id)
		filter.AuthorID = &authorID
	}

	list, err := h.posts.Search(c.Request.Context(), actor(c), filter)
	h.renderList(c, list, err)
}

// GetFeed godoc
// @Summary      Get the caller's feed
// @Description  Published posts of followed users, newest first.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page" default(20)
// @Success      200   {object}  PaginatedPostResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /feed [get]
func (h *PostHandler) GetFeed(c *gin.Context) {
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}
	list, err := h.posts.Feed(c.Request.Context(), auth.UserID(c), q.Page, q.Limit)
	h.renderList(c, list, err)
}

// GetUserPosts godoc
// @Summary      List a user's published posts
// @Tags         posts
// @Produce      json
// @Param        id    path      int  true   "User ID"
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page" default(20)
// @Success      200   {object}  PaginatedPostResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /users/{id}/posts [get]
func (h *PostHandler) GetUserPosts(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}
	list, err := h.posts.ByAuthor(c.Request.Context(), actor(c), id, q.Page, q.Limit)
	h.renderList(c, list, err)
}

// GetPost godoc
// @Summary      Get a post
// @Description  Drafts are visible to their author and staff only.
// @Tags         posts
// @Produce      json
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  PostResponse
// @Failure      404  {object}  ErrorResponse "Post not found"
// @Router       /posts/{id} [get]
func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	post, liked, err := h.posts.View(c.Request.Context(), actor(c), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newPostResponse(*post, map[uint]bool{post.ID: liked}))
}

// CreatePost godoc
// @Summary      Create a post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      PostRequest true "Post"
// @Success      201   {object}  PostResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse "Game, category or tag not found"
// @Router       /posts [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req PostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.posts.Create(c.Request.Context(), actor(c), req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPostResponse(*post, nil))
}

// UpdatePost godoc
// @Summary      Update a post
// @Description  Replaces the post's fields and tags.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int         true  "Post ID"
// @Param        input body      PostRequest true  "Post"
// @Success      200   {object}  PostResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /posts/{id} [put]
func (h *PostHandler) UpdatePost(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req PostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.posts.Update(c.Request.Context(), actor(c), id, req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newPostResponse(*post, nil))
}

// DeletePost godoc
// @Summary      Delete a post
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id} [delete]
func (h *PostHandler) DeletePost(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), actor(c), id); err != nil {
		abort(c, err)
		return
	}
	deleted(c, "post")
}

// LikePost godoc
// @Summary      Like a post
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  service.LikeState
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id}/like [post]
func (h *PostHandler) LikePost(c *gin.Context) {
	h.like(c, h.posts.Like)
}

// UnlikePost godoc
// @Summary      Remove a like
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  service.LikeState
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id}/like [delete]
func (h *PostHandler) UnlikePost(c *gin.Context) {
	h.like(c, h.posts.Unlike)
}

func (h *PostHandler) like(c *gin.Context, fn func(context.Context, service.Actor, uint) (*service.LikeState, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	state, err := fn(c.Request.Context(), actor(c), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
