package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"path/filepath"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/observability"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// allowedUploadTypes maps accepted MIME types to the stored file extension.
var allowedUploadTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadService stores user images and their metadata.
type UploadService struct {
	*CRUDService[models.Upload]
	uploads  *repository.Repository[models.Upload]
	storage  storage.Storage
	maxBytes int64
	log      *zap.Logger
}

func NewUploadService(uploads *repository.Repository[models.Upload], store storage.Storage, maxBytes int64, log *zap.Logger) *UploadService {
	return &UploadService{
		CRUDService: NewCRUDService(uploads, func(u *models.Upload) uint { return u.OwnerID }),
		uploads:     uploads,
		storage:     store,
		maxBytes:    maxBytes,
		log:         log,
	}
}

// URL is the public address of a stored upload.
func (s *UploadService) URL(u *models.Upload) string {
	return s.storage.URL(u.StoredName)
}

// Store validates the size and sniffed type of r, writes it and records its metadata.
func (s *UploadService) Store(ctx context.Context, actor Actor, originalName string, r io.Reader) (*models.Upload, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("error.unauthorized")
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(data) == 0 {
		return nil, apperr.Validation("error.file_missing", nil)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperr.Validation("error.file_too_large", map[string]string{
			"max": uintString(uint(s.maxBytes >> 20)),
		})
	}

	mime := mimetype.Detect(data)
	ext, ok := allowedUploadTypes[mime.String()]
	if !ok {
		return nil, apperr.Validation("error.unsupported_file_type", map[string]string{"type": mime.String()})
	}

	sum := sha256.Sum256(data)
	upload := &models.Upload{
		OwnerID:      actor.ID,
		OriginalName: filepath.Base(originalName),
		StoredName:   uuid.NewString() + ext,
		ContentType:  mime.String(),
		Size:         int64(len(data)),
		Checksum:     hex.EncodeToString(sum[:]),
	}
	if _, err := s.storage.Save(ctx, upload.StoredName, bytes.NewReader(data)); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		if rmErr := s.storage.Delete(ctx, upload.StoredName); rmErr != nil {
			s.log.Warn("failed to remove orphaned upload", zap.String("name", upload.StoredName), zap.Error(rmErr))
		}
		return nil, err
	}
	observability.UploadsStoredBytes.Add(float64(upload.Size))
	return upload, nil
}

// Delete removes the metadata and then the file.
func (s *UploadService) Delete(ctx context.Context, actor Actor, id uint) error {
	upload, err := s.GetForUpdate(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.uploads.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, upload.StoredName); err != nil {
		s.log.Warn("failed to remove upload file", zap.String("name", upload.StoredName), zap.Error(err))
	}
	return nil
}
