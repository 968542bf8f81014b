package repository

import (
	"gamehub/backend/internal/models"

	"gorm.io/gorm"
)

func NewReportRepository(db *gorm.DB) *Repository[models.Report] {
	return New[models.Report](db, Config{
		Resource:   "report",
		SortFields: map[string]string{"created_at": "reports.created_at"},
		FilterFields: map[string]string{
			"status":      "reports.status",
			"target_type": "reports.target_type",
			"reporter_id": "reports.reporter_id",
		},
		DefaultSort: "reports.created_at DESC, reports.id DESC",
	})
}

func NewUploadRepository(db *gorm.DB) *Repository[models.Upload] {
	return New[models.Upload](db, Config{
		Resource:     "upload",
		SortFields:   map[string]string{"created_at": "uploads.created_at"},
		FilterFields: map[string]string{"owner_id": "uploads.owner_id"},
		DefaultSort:  "uploads.created_at DESC",
	})
}
