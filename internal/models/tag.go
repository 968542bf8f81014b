package models

import "gorm.io/gorm"

// Tag represents a label shared by games and posts (e.g., "RPG", "Co-op").
type Tag struct {
	gorm.Model
	Name string `gorm:"size:100;unique;not null"`
	Slug string `gorm:"size:100;unique;not null"`
}

// Category groups games and posts (e.g., "Strategy", "News").
type Category struct {
	gorm.Model
	Name        string `gorm:"size:100;unique;not null"`
	Slug        string `gorm:"size:100;unique;not null"`
	Description string `gorm:"size:1000"`
}
