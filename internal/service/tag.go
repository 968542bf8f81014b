package service

import (
	"context"
	"strings"

	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"

	"gorm.io/gorm"
)

// TagService manages tags. Writes are staff only; the router enforces the role.
type TagService struct {
	*CRUDService[models.Tag]
	db    *gorm.DB
	tags  *repository.TagRepository
	cache *cache.Cache
}

func NewTagService(db *gorm.DB, tags *repository.TagRepository, c *cache.Cache) *TagService {
	return &TagService{CRUDService: NewCRUDService[models.Tag](tags.Repository, nil), db: db, tags: tags, cache: c}
}

func (s *TagService) Search(ctx context.Context, q string, page, limit int) (*repository.Page[models.Tag], error) {
	return s.List(ctx, repository.ListOptions{Page: page, Limit: limit, Search: strings.TrimSpace(q)})
}

func (s *TagService) Create(ctx context.Context, in TaxonomyInput) (*models.Tag, error) {
	slug, err := in.slug()
	if err != nil {
		return nil, err
	}
	tag := &models.Tag{Name: strings.TrimSpace(in.Name), Slug: slug}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) Update(ctx context.Context, id uint, in TaxonomyInput) (*models.Tag, error) {
	tag, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slug, err := in.slug()
	if err != nil {
		return nil, err
	}
	tag.Name = strings.TrimSpace(in.Name)
	tag.Slug = slug
	if err := s.tags.Save(ctx, tag); err != nil {
		return nil, err
	}
	s.invalidateGames(ctx, id)
	return tag, nil
}

// Delete removes the tag from every game and post, then deletes it.
func (s *TagService) Delete(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.GetForUpdate(ctx, actor, id); err != nil {
		return err
	}
	var gameIDs []uint
	err := repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		tags := s.tags.WithTx(tx)
		var err error
		if gameIDs, err = tags.GameIDs(ctx, id); err != nil {
			return err
		}
		if err := tags.Detach(ctx, id); err != nil {
			return err
		}
		return tags.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, gameIDs)
	return nil
}

// invalidateGames drops the cached games that embed tagID.
func (s *TagService) invalidateGames(ctx context.Context, tagID uint) {
	if !s.cache.Enabled() {
		return
	}
	gameIDs, err := s.tags.GameIDs(ctx, tagID)
	if err != nil {
		return
	}
	s.invalidate(ctx, gameIDs)
}

func (s *TagService) invalidate(ctx context.Context, gameIDs []uint) {
	keys := make([]string, 0, len(gameIDs))
	for _, gameID := range gameIDs {
		keys = append(keys, cache.GameKey(gameID))
	}
	s.cache.Invalidate(ctx, keys...)
}
