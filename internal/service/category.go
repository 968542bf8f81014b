package service

import (
	"context"
	"strings"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/validation"

	"gorm.io/gorm"
)

// TaxonomyInput creates or updates a category or a tag. An empty slug is derived from the name.
type TaxonomyInput struct {
	Name        string
	Slug        string
	Description string
}

func (in TaxonomyInput) slug() (string, error) {
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = validation.Slugify(in.Name)
	}
	if !validation.IsSlug(slug) {
		return "", apperr.Validation("error.validation_failed", nil)
	}
	return slug, nil
}

type CategoryService struct {
	*CRUDService[models.Category]
	db    *gorm.DB
	repo  *repository.Repository[models.Category]
	cache *cache.Cache
}

func NewCategoryService(db *gorm.DB, repo *repository.Repository[models.Category], c *cache.Cache) *CategoryService {
	return &CategoryService{CRUDService: NewCRUDService[models.Category](repo, nil), db: db, repo: repo, cache: c}
}

// ListAll returns every category sorted by name, served from the cache when possible.
func (s *CategoryService) ListAll(ctx context.Context) ([]models.Category, error) {
	return cache.Aside(ctx, s.cache, cache.CategoriesKey, cache.CategoriesTTL, func(ctx context.Context) ([]models.Category, error) {
		var categories []models.Category
		err := s.repo.DB(ctx).Order("name ASC").Find(&categories).Error
		return categories, err
	})
}

func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.repo.FindOne(ctx, whereScope("slug = ?", slug))
}

func (s *CategoryService) Create(ctx context.Context, actor Actor, in TaxonomyInput) (*models.Category, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("error.forbidden")
	}
	slug, err := in.slug()
	if err != nil {
		return nil, err
	}
	category := &models.Category{Name: strings.TrimSpace(in.Name), Slug: slug, Description: in.Description}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.CategoriesKey)
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, actor Actor, id uint, in TaxonomyInput) (*models.Category, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("error.forbidden")
	}
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slug, err := in.slug()
	if err != nil {
		return nil, err
	}
	category.Name = strings.TrimSpace(in.Name)
	category.Slug = slug
	category.Description = in.Description
	if err := s.repo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.CategoriesKey)
	return category, nil
}

// Delete removes the category and detaches it from games and posts.
func (s *CategoryService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("error.forbidden")
	}
	var gameIDs []uint
	err := repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return err
		}
		if err := tx.Model(&models.Game{}).Where("category_id = ?", id).Pluck("id", &gameIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Game{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	keys := []string{cache.CategoriesKey}
	for _, gameID := range gameIDs {
		keys = append(keys, cache.GameKey(gameID))
	}
	s.cache.Invalidate(ctx, keys...)
	return nil
}
