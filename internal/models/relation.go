package models

import "time"

// Follow is a one-way subscription from Follower to Followee.
// The composite primary key makes a follow unique.
type Follow struct {
	FollowerID uint `gorm:"primaryKey"`
	FolloweeID uint `gorm:"primaryKey;index"`
	CreatedAt  time.Time

	Follower User `gorm:"foreignKey:FollowerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Followee User `gorm:"foreignKey:FolloweeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Block hides content between two users and prevents interaction in both directions.
type Block struct {
	BlockerID uint `gorm:"primaryKey"`
	BlockedID uint `gorm:"primaryKey;index"`
	CreatedAt time.Time

	Blocker User `gorm:"foreignKey:BlockerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Blocked User `gorm:"foreignKey:BlockedID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
