package handler

import (
	"net/http"

	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// TaxonomyRequest is the body for creating or updating a tag or category.
type TaxonomyRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Slug        string `json:"slug" binding:"omitempty,max=100,slug"`
	Description string `json:"description" binding:"max=1000"`
}

func (r TaxonomyRequest) input() service.TaxonomyInput {
	return service.TaxonomyInput{Name: r.Name, Slug: r.Slug, Description: r.Description}
}

type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func newTagResponse(tag models.Tag) TagResponse {
	return TagResponse{
		ID:   tag.ID,
		Name: tag.Name,
		Slug: tag.Slug,
	}
}

func newTagResponses(tags []*models.Tag) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, tag := range tags {
		if tag != nil {
			out = append(out, newTagResponse(*tag))
		}
	}
	return out
}

// PaginatedTagResponse defines the structure for a paginated list of tags.
type PaginatedTagResponse struct {
	Data []TagResponse  `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type TagQuery struct {
	ListQuery
	Q string `form:"q" binding:"max=100"`
}

// endregion

// TagHandler serves tags. Writes are mounted behind the staff check.
type TagHandler struct {
	tags *service.TagService
}

func NewTagHandler(tags *service.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

// GetTags godoc
// @Summary      List tags
// @Tags         tags
// @Produce      json
// @Param        q     query     string  false  "Name filter"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(20)
// @Success      200   {object}  PaginatedTagResponse
// @Router       /tags [get]
func (h *TagHandler) GetTags(c *gin.Context) {
	var q TagQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.tags.Search(c.Request.Context(), q.Q, q.Page, q.Limit)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, Paginate(page, newTagResponse))
}

// CreateTag godoc
// @Summary      Create a new tag
// @Tags         admin-tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      TaxonomyRequest true "Tag Info"
// @Success      201   {object}  TagResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse "Staff access required"
// @Failure      409   {object}  ErrorResponse "Tag already exists"
// @Router       /admin/tags [post]
func (h *TagHandler) CreateTag(c *gin.Context) {
	var req TaxonomyRequest
	if !bindJSON(c, &req) {
		return
	}
	tag, err := h.tags.Create(c.Request.Context(), req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTagResponse(*tag))
}

// UpdateTag godoc
// @Summary      Update a tag
// @Tags         admin-tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int             true  "Tag ID"
// @Param        input body      TaxonomyRequest true  "New Tag Info"
// @Success      200   {object}  TagResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse "Tag not found"
// @Failure      409   {object}  ErrorResponse
// @Router       /admin/tags/{id} [put]
func (h *TagHandler) UpdateTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req TaxonomyRequest
	if !bindJSON(c, &req) {
		return
	}
	tag, err := h.tags.Update(c.Request.Context(), id, req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newTagResponse(*tag))
}

// DeleteTag godoc
// @Summary      Delete a tag
// @Description  Deletes a tag and detaches it from games and posts.
// @Tags         admin-tags
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Tag ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse "Tag not found"
// @Router       /admin/tags/{id} [delete]
func (h *TagHandler) DeleteTag(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.tags.Delete(c.Request.Context(), actor(c), id); err != nil {
		abort(c, err)
		return
	}
	deleted(c, "tag")
}
