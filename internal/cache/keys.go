package cache

import (
	"fmt"
	"time"
)

const (
	GameKeyPrefix      = "game:%d"
	CategoriesKey      = "categories:all"
	BlacklistKeyPrefix = "jwt:blacklist:%s"
)

const (
	GameTTL       = 10 * time.Minute
	CategoriesTTL = 10 * time.Minute
)

func GameKey(gameID uint) string {
	return fmt.Sprintf(GameKeyPrefix, gameID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}
