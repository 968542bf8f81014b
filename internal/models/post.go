package models

import (
	"time"

	"gorm.io/gorm"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

// Post is an article written by a user, optionally about a game.
type Post struct {
	gorm.Model
	AuthorID      uint       `gorm:"not null;index"`
	Author        User       `gorm:"constraint:OnDelete:CASCADE;"`
	Title         string     `gorm:"size:200;not null"`
	Content       string     `gorm:"type:text;not null"`
	Status        PostStatus `gorm:"size:20;not null;default:'draft';index"`
	PublishedAt   *time.Time `gorm:"index"`
	GameID        *uint      `gorm:"index"`
	Game          *Game      `gorm:"constraint:OnDelete:SET NULL;"`
	CategoryID    *uint      `gorm:"index"`
	Category      *Category  `gorm:"constraint:OnDelete:SET NULL;"`
	Tags          []*Tag     `gorm:"many2many:post_tags;"`
	CoverURL      string     `gorm:"size:512"`
	LikesCount    int        `gorm:"not null;default:0"`
	CommentsCount int        `gorm:"not null;default:0"`
}

// PostLike records that a user liked a post.
type PostLike struct {
	UserID    uint `gorm:"primaryKey"`
	PostID    uint `gorm:"primaryKey"`
	CreatedAt time.Time
}

// Comment belongs to a post. Replies point at a top-level comment through ParentID.
type Comment struct {
	gorm.Model
	PostID   uint      `gorm:"not null;index"`
	AuthorID uint      `gorm:"not null;index"`
	Author   User      `gorm:"constraint:OnDelete:CASCADE;"`
	ParentID *uint     `gorm:"index"`
	Content  string    `gorm:"type:text;not null"`
	Replies  []Comment `gorm:"foreignKey:ParentID"`
}

// Review is a user's rating of a game. A user reviews a game at most once,
// so reviews are deleted for real instead of soft deleted.
type Review struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	GameID    uint   `gorm:"not null;uniqueIndex:idx_review_game_author"`
	AuthorID  uint   `gorm:"not null;uniqueIndex:idx_review_game_author;index"`
	Author    User   `gorm:"constraint:OnDelete:CASCADE;"`
	Rating    int    `gorm:"not null"`
	Title     string `gorm:"size:200"`
	Body      string `gorm:"type:text"`
}
