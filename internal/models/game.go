package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Game represents a game in the catalog.
type Game struct {
	gorm.Model
	Title         string `gorm:"size:255;not null;index"`
	Slug          string `gorm:"size:255;unique;not null"`
	Description   string
	Developer     string `gorm:"size:255"`
	Publisher     string `gorm:"size:255"`
	ReleaseDate   *time.Time
	CoverURL      string          `gorm:"size:512"`
	SteamURL      string          `gorm:"size:512"`
	CategoryID    *uint           `gorm:"index"`
	Category      *Category       `gorm:"constraint:OnDelete:SET NULL;"`
	Tags          []*Tag          `gorm:"many2many:game_tags;"`
	AverageRating decimal.Decimal `gorm:"type:numeric(3,2);not null;default:0"`
	ReviewCount   int             `gorm:"not null;default:0"`
}
