package handler

import (
	"net/http"

	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

type CategoryResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func newCategoryResponse(cat models.Category) CategoryResponse {
	return CategoryResponse{ID: cat.ID, Name: cat.Name, Slug: cat.Slug, Description: cat.Description}
}

func newCategoryRef(cat *models.Category) *CategoryResponse {
	if cat == nil || cat.ID == 0 {
		return nil
	}
	out := newCategoryResponse(*cat)
	return &out
}

// CategoryHandler serves categories.
type CategoryHandler struct {
	categories *service.CategoryService
}

func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// ListCategories godoc
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Success      200  {array}  CategoryResponse
// @Router       /categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	cats, err := h.categories.ListAll(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	out := make([]CategoryResponse, 0, len(cats))
	for _, cat := range cats {
		out = append(out, newCategoryResponse(cat))
	}
	c.JSON(http.StatusOK, out)
}

// GetCategory godoc
// @Summary      Get a category by slug
// @Tags         categories
// @Produce      json
// @Param        slug path      string  true  "Category slug"
// @Success      200  {object}  CategoryResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /categories/{slug} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	cat, err := h.categories.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newCategoryResponse(*cat))
}

// CreateCategory godoc
// @Summary      Create a category
// @Tags         admin-categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body      TaxonomyRequest true "Category Info"
// @Success      201   {object}  CategoryResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse "Admin access required"
// @Failure      409   {object}  ErrorResponse
// @Router       /admin/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req TaxonomyRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.categories.Create(c.Request.Context(), actor(c), req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCategoryResponse(*cat))
}

// UpdateCategory godoc
// @Summary      Update a category
// @Tags         admin-categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int             true  "Category ID"
// @Param        input body      TaxonomyRequest true  "Category Info"
// @Success      200   {object}  CategoryResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /admin/categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req TaxonomyRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.categories.Update(c.Request.Context(), actor(c), id, req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newCategoryResponse(*cat))
}

// DeleteCategory godoc
// @Summary      Delete a category
// @Description  Deletes a category. Games and posts in it become uncategorized.
// @Tags         admin-categories
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Category ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /admin/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), actor(c), id); err != nil {
		abort(c, err)
		return
	}
	deleted(c, "category")
}
