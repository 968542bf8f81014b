package service

import (
	"strconv"

	"gamehub/backend/internal/repository"

	"gorm.io/gorm"
)

func excludeUserScope(userID uint) repository.Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("users.id <> ?", userID)
	}
}

func whereScope(query string, args ...any) repository.Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
