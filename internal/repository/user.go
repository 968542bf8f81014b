package repository

import (
	"context"
	"strings"

	"gamehub/backend/internal/models"

	"gorm.io/gorm"
)

// UserRepository adds user-specific lookups to the generic repository.
type UserRepository struct {
	*Repository[models.User]
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{New[models.User](db, Config{
		Resource:     "user",
		SortFields:   map[string]string{"username": "users.username", "created_at": "users.created_at"},
		SearchFields: []string{"users.username"},
		DefaultSort:  "users.username ASC",
	})}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{r.Repository.WithTx(tx)}
}

// FindByLogin finds a user by username or email, case-insensitively.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	return r.FindOne(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(username) = ? OR LOWER(email) = ?", login, login)
	})
}

// Taken reports whether username or email is already registered.
func (r *UserRepository) Taken(ctx context.Context, username, email string) (bool, error) {
	return r.Exists(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Unscoped().Where("LOWER(username) = ? OR LOWER(email) = ?",
			strings.ToLower(username), strings.ToLower(email))
	})
}

// FavoriteGameIDs returns the ids of the user's favorite games among gameIDs.
// An empty gameIDs returns every favorite.
func (r *UserRepository) FavoriteGameIDs(ctx context.Context, userID uint, gameIDs ...uint) (map[uint]bool, error) {
	var ids []uint
	q := r.DB(ctx).Table("user_favorite_games").Where("user_id = ?", userID)
	if len(gameIDs) > 0 {
		q = q.Where("game_id IN ?", gameIDs)
	}
	if err := q.Pluck("game_id", &ids).Error; err != nil {
		return nil, err
	}
	favorites := make(map[uint]bool, len(ids))
	for _, id := range ids {
		favorites[id] = true
	}
	return favorites, nil
}

// ToggleFavorite adds or removes game from the user's favorites and returns the new state.
func (r *UserRepository) ToggleFavorite(ctx context.Context, userID uint, game *models.Game) (bool, error) {
	user := models.User{Model: gorm.Model{ID: userID}}
	assoc := r.DB(ctx).Model(&user).Association("FavoriteGames")

	favorites, err := r.FavoriteGameIDs(ctx, userID, game.ID)
	if err != nil {
		return false, err
	}
	if favorites[game.ID] {
		return false, assoc.Delete(game)
	}
	return true, assoc.Append(game)
}

// FavoritesScope restricts a games query to the user's favorites.
func FavoritesScope(userID uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("games.id IN (SELECT game_id FROM user_favorite_games WHERE user_id = ?)", userID)
	}
}
