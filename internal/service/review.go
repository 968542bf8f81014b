package service

import (
	"context"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/sanitize"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReviewInput struct {
	Rating int
	Title  string
	Body   string
}

func (in ReviewInput) validate() error {
	if in.Rating < 1 || in.Rating > 5 {
		return apperr.Validation("error.validation_failed", nil)
	}
	return nil
}

// ReviewService keeps each game's rating aggregate in step with its reviews.
type ReviewService struct {
	*CRUDService[models.Review]
	db      *gorm.DB
	reviews *repository.ReviewRepository
	games   *repository.GameRepository
	cache   *cache.Cache
}

func NewReviewService(db *gorm.DB, reviews *repository.ReviewRepository, games *repository.GameRepository, c *cache.Cache) *ReviewService {
	return &ReviewService{
		CRUDService: NewCRUDService(reviews.Repository, func(r *models.Review) uint { return r.AuthorID }, "Author"),
		db:          db,
		reviews:     reviews,
		games:       games,
		cache:       c,
	}
}

func (s *ReviewService) ListForGame(ctx context.Context, gameID uint, sort string, page, limit int) (*repository.Page[models.Review], error) {
	if _, err := s.games.FindByID(ctx, gameID); err != nil {
		return nil, err
	}
	return s.List(ctx, repository.ListOptions{
		Page:    page,
		Limit:   limit,
		Sort:    sort,
		Filters: map[string]any{"game_id": gameID},
	})
}

func (s *ReviewService) Create(ctx context.Context, actor Actor, gameID uint, in ReviewInput) (*models.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	review := &models.Review{
		GameID:   gameID,
		AuthorID: actor.ID,
		Rating:   in.Rating,
		Title:    sanitize.Text(in.Title),
		Body:     sanitize.Text(in.Body),
	}
	err := repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := s.games.WithTx(tx).FindByID(ctx, gameID); err != nil {
			return err
		}
		if err := s.reviews.WithTx(tx).Create(ctx, review); err != nil {
			if apperr.Is(err, apperr.KindConflict) {
				return apperr.Conflict("error.already_reviewed", nil)
			}
			return err
		}
		return s.recompute(ctx, tx, gameID)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.GameKey(gameID))
	return s.Get(ctx, review.ID)
}

func (s *ReviewService) Update(ctx context.Context, actor Actor, id uint, in ReviewInput) (*models.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	review, err := s.GetForUpdate(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	err = repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		fields := map[string]any{
			"rating": in.Rating,
			"title":  sanitize.Text(in.Title),
			"body":   sanitize.Text(in.Body),
		}
		if err := s.reviews.WithTx(tx).Updates(ctx, review, fields); err != nil {
			return err
		}
		return s.recompute(ctx, tx, review.GameID)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.GameKey(review.GameID))
	return s.Get(ctx, id)
}

func (s *ReviewService) Delete(ctx context.Context, actor Actor, id uint) error {
	review, err := s.GetForUpdate(ctx, actor, id)
	if err != nil {
		return err
	}
	err = repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		return s.deleteInTx(ctx, tx, review)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.GameKey(review.GameID))
	return nil
}

// deleteInTx removes a review and refreshes its game's aggregate inside tx.
// The caller invalidates the game cache after commit.
func (s *ReviewService) deleteInTx(ctx context.Context, tx *gorm.DB, review *models.Review) error {
	if err := s.reviews.WithTx(tx).Delete(ctx, review.ID); err != nil {
		return err
	}
	return s.recompute(ctx, tx, review.GameID)
}

func (s *ReviewService) recompute(ctx context.Context, tx *gorm.DB, gameID uint) error {
	average, count, err := s.reviews.WithTx(tx).Aggregate(ctx, gameID)
	if err != nil {
		return err
	}
	return s.games.WithTx(tx).SetRating(ctx, gameID, decimal.NewFromFloat(average).Round(2), count)
}
