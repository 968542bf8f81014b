package handler

import (
	"net/http"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
)

type UploadResponse struct {
	ID           uint      `json:"id"`
	URL          string    `json:"url"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"`
	OwnerID      uint      `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// UploadHandler stores and serves image metadata.
type UploadHandler struct {
	uploads *service.UploadService
}

func NewUploadHandler(uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

func (h *UploadHandler) response(u *models.Upload) UploadResponse {
	return UploadResponse{
		ID:           u.ID,
		URL:          h.uploads.URL(u),
		OriginalName: u.OriginalName,
		ContentType:  u.ContentType,
		Size:         u.Size,
		Checksum:     u.Checksum,
		OwnerID:      u.OwnerID,
		CreatedAt:    u.CreatedAt,
	}
}

// CreateUpload godoc
// @Summary      Upload an image
// @Description  Accepts png, jpeg, gif or webp up to the configured size.
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData  file  true  "Image"
// @Success      201  {object}  UploadResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /uploads [post]
func (h *UploadHandler) CreateUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		abort(c, apperr.Validation("error.file_missing", nil))
		return
	}
	file, err := header.Open()
	if err != nil {
		abort(c, apperr.Internal(err))
		return
	}
	defer file.Close()

	upload, err := h.uploads.Store(c.Request.Context(), actor(c), header.Filename, file)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.response(upload))
}

// GetUpload godoc
// @Summary      Get upload metadata
// @Tags         uploads
// @Produce      json
// @Param        id   path      int  true  "Upload ID"
// @Success      200  {object}  UploadResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /uploads/{id} [get]
func (h *UploadHandler) GetUpload(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	upload, err := h.uploads.Get(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, h.response(upload))
}

// DeleteUpload godoc
// @Summary      Delete an upload
// @Tags         uploads
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Upload ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /uploads/{id} [delete]
func (h *UploadHandler) DeleteUpload(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.uploads.Delete(c.Request.Context(), actor(c), id); err != nil {
		abort(c, err)
		return
	}
	deleted(c, "upload")
}
