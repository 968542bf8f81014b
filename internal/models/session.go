package models

import "time"

// Session is one refresh-token lineage step. Rotating a token revokes the
// current row and creates its successor in the same family.
type Session struct {
	ID           string     `gorm:"type:varchar(36);primaryKey"`
	UserID       uint       `gorm:"not null;index"`
	FamilyID     string     `gorm:"type:varchar(36);not null;index"`
	TokenHash    string     `gorm:"size:64;not null;uniqueIndex"`
	UserAgent    string     `gorm:"size:255"`
	IP           string     `gorm:"size:64"`
	ExpiresAt    time.Time  `gorm:"not null"`
	LastUsedAt   time.Time
	RevokedAt    *time.Time `gorm:"index"`
	ReplacedByID *string    `gorm:"type:varchar(36)"`
	CreatedAt    time.Time

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

// Active reports whether the session can still be used at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
