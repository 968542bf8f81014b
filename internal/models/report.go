package models

import (
	"time"

	"gorm.io/gorm"
)

type ReportTarget string

const (
	ReportTargetPost    ReportTarget = "post"
	ReportTargetComment ReportTarget = "comment"
	ReportTargetReview  ReportTarget = "review"
	ReportTargetUser    ReportTarget = "user"
	ReportTargetGame    ReportTarget = "game"
)

type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Report flags a piece of content or a user for moderator review.
type Report struct {
	gorm.Model
	ReporterID   uint         `gorm:"not null;index"`
	Reporter     User         `gorm:"constraint:OnDelete:CASCADE;"`
	TargetType   ReportTarget `gorm:"size:20;not null;index:idx_report_target"`
	TargetID     uint         `gorm:"not null;index:idx_report_target"`
	Reason       string       `gorm:"size:20;not null"`
	Details      string       `gorm:"size:1000"`
	Status       ReportStatus `gorm:"size:20;not null;default:'open';index"`
	Resolution   string       `gorm:"size:1000"`
	ResolvedByID *uint
	ResolvedAt   *time.Time
}

// Upload is the metadata of a stored file.
type Upload struct {
	gorm.Model
	OwnerID      uint   `gorm:"not null;index"`
	OriginalName string `gorm:"size:255"`
	StoredName   string `gorm:"size:64;unique;not null"`
	ContentType  string `gorm:"size:100;not null"`
	Size         int64  `gorm:"not null"`
	Checksum     string `gorm:"size:64;not null"`
}
