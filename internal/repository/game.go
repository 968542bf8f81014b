package repository

import (
	"context"

	"gamehub/backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GameRepository adds catalog queries to the generic repository.
type GameRepository struct {
	*Repository[models.Game]
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{New[models.Game](db, Config{
		Resource: "game",
		SortFields: map[string]string{
			"title":        "games.title",
			"rating":       "games.average_rating",
			"reviews":      "games.review_count",
			"created_at":   "games.created_at",
			"release_date": "games.release_date",
		},
		FilterFields: map[string]string{"category_id": "games.category_id"},
		SearchFields: []string{"games.title", "games.developer"},
		DefaultSort:  "games.title ASC",
	})}
}

func (r *GameRepository) WithTx(tx *gorm.DB) *GameRepository {
	return &GameRepository{r.Repository.WithTx(tx)}
}

// ReplaceTags sets the game's tags to exactly tags.
func (r *GameRepository) ReplaceTags(ctx context.Context, game *models.Game, tags []*models.Tag) error {
	return r.DB(ctx).Model(game).Association("Tags").Replace(tags)
}

// Titles returns up to limit game titles, used for fuzzy suggestions.
func (r *GameRepository) Titles(ctx context.Context, limit int) ([]string, error) {
	var titles []string
	err := r.DB(ctx).Model(&models.Game{}).Order("title").Limit(limit).Pluck("title", &titles).Error
	return titles, err
}

// SetRating stores the aggregate computed from the game's reviews.
func (r *GameRepository) SetRating(ctx context.Context, gameID uint, average decimal.Decimal, count int64) error {
	return r.DB(ctx).Model(&models.Game{}).Where("id = ?", gameID).
		Updates(map[string]any{"average_rating": average, "review_count": count}).Error
}

// AnyTagScope keeps games that carry at least one of tagIDs.
func AnyTagScope(tagIDs []uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("games.id IN (SELECT game_id FROM game_tags WHERE tag_id IN ?)", tagIDs)
	}
}

// CategorySlugScope keeps rows of table whose category has slug.
func CategorySlugScope(table, slug string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".category_id IN (SELECT id FROM categories WHERE slug = ? AND deleted_at IS NULL)", slug)
	}
}

func NewCategoryRepository(db *gorm.DB) *Repository[models.Category] {
	return New[models.Category](db, Config{
		Resource:     "category",
		SortFields:   map[string]string{"name": "categories.name", "created_at": "categories.created_at"},
		SearchFields: []string{"categories.name"},
		DefaultSort:  "categories.name ASC",
	})
}

// TagRepository adds association cleanup to the generic repository.
type TagRepository struct {
	*Repository[models.Tag]
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{New[models.Tag](db, Config{
		Resource:     "tag",
		SortFields:   map[string]string{"name": "tags.name", "created_at": "tags.created_at"},
		SearchFields: []string{"tags.name"},
		DefaultSort:  "tags.name ASC",
	})}
}

func (r *TagRepository) WithTx(tx *gorm.DB) *TagRepository {
	return &TagRepository{r.Repository.WithTx(tx)}
}

// Detach removes the tag from every game and post.
func (r *TagRepository) Detach(ctx context.Context, tagID uint) error {
	db := r.DB(ctx)
	if err := db.Exec("DELETE FROM game_tags WHERE tag_id = ?", tagID).Error; err != nil {
		return err
	}
	return db.Exec("DELETE FROM post_tags WHERE tag_id = ?", tagID).Error
}

// GameIDs lists the games carrying tagID.
func (r *TagRepository) GameIDs(ctx context.Context, tagID uint) ([]uint, error) {
	var ids []uint
	err := r.DB(ctx).Table("game_tags").Where("tag_id = ?", tagID).Pluck("game_id", &ids).Error
	return ids, err
}

// FindTags loads the tags with the given ids as pointers, ready for associations.
func (r *TagRepository) FindTags(ctx context.Context, ids []uint) ([]*models.Tag, error) {
	var tags []*models.Tag
	if len(ids) == 0 {
		return tags, nil
	}
	err := r.DB(ctx).Find(&tags, ids).Error
	return tags, err
}
