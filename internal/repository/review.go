package repository

import (
	"context"

	"gamehub/backend/internal/models"

	"gorm.io/gorm"
)

// ReviewRepository adds rating aggregation to the generic repository.
type ReviewRepository struct {
	*Repository[models.Review]
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{New[models.Review](db, Config{
		Resource:     "review",
		SortFields:   map[string]string{"created_at": "reviews.created_at", "rating": "reviews.rating"},
		FilterFields: map[string]string{"game_id": "reviews.game_id", "author_id": "reviews.author_id"},
		DefaultSort:  "reviews.created_at DESC, reviews.id DESC",
	})}
}

func (r *ReviewRepository) WithTx(tx *gorm.DB) *ReviewRepository {
	return &ReviewRepository{r.Repository.WithTx(tx)}
}

// Aggregate returns the average rating and number of live reviews of a game.
func (r *ReviewRepository) Aggregate(ctx context.Context, gameID uint) (float64, int64, error) {
	var row struct {
		Average float64
		Total   int64
	}
	err := r.DB(ctx).Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("game_id = ?", gameID).
		Scan(&row).Error
	return row.Average, row.Total, err
}
