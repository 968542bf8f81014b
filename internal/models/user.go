package models

import "gorm.io/gorm"

// Role is a user's permission level.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// IsStaff is true for moderators and admins.
func (r Role) IsStaff() bool {
	return r == RoleModerator || r == RoleAdmin
}

// User represents a user in the system.
type User struct {
	gorm.Model
	Username      string  `gorm:"size:30;unique;not null"`
	Email         string  `gorm:"size:255;unique;not null"`
	PasswordHash  string  `gorm:"size:255;not null"`
	Role          Role    `gorm:"size:20;not null;default:'user';index"`
	Bio           string  `gorm:"size:500"`
	AvatarURL     string  `gorm:"size:512"`
	Locale        string  `gorm:"size:8;not null;default:'en'"`
	TOTPSecret    string  `gorm:"size:64"`
	TOTPEnabled   bool    `gorm:"not null;default:false"`
	FavoriteGames []*Game `gorm:"many2many:user_favorite_games;"`
}
