// Package service holds the business rules. Services return *apperr.Error
// for every failure a client can act on.
package service

import (
	"context"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"

	"gorm.io/gorm"
)

// Actor is the authenticated caller of an operation. The zero Actor is anonymous.
type Actor struct {
	ID   uint
	Role models.Role
}

func (a Actor) Authenticated() bool { return a.ID != 0 }

func (a Actor) IsStaff() bool { return a.Role.IsStaff() }

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// CRUDService is the generic read and delete service shared by every entity.
// ownerOf enables ownership checks; without it only staff may mutate.
type CRUDService[T any] struct {
	repo     *repository.Repository[T]
	ownerOf  func(*T) uint
	preloads []string
}

func NewCRUDService[T any](repo *repository.Repository[T], ownerOf func(*T) uint, preloads ...string) *CRUDService[T] {
	return &CRUDService[T]{repo: repo, ownerOf: ownerOf, preloads: preloads}
}

// Get loads an entity with its default preloads.
func (s *CRUDService[T]) Get(ctx context.Context, id uint) (*T, error) {
	return s.repo.FindByID(ctx, id, s.preloads...)
}

// List runs a paginated query. Default preloads apply when opts has none.
func (s *CRUDService[T]) List(ctx context.Context, opts repository.ListOptions) (*repository.Page[T], error) {
	if opts.Preloads == nil {
		opts.Preloads = s.preloads
	}
	return s.repo.List(ctx, opts)
}

// Authorize allows staff, and owners when the entity has one.
func (s *CRUDService[T]) Authorize(actor Actor, entity *T) error {
	if !actor.Authenticated() {
		return apperr.Unauthorized("error.unauthorized")
	}
	if actor.IsStaff() {
		return nil
	}
	if s.ownerOf != nil && s.ownerOf(entity) == actor.ID {
		return nil
	}
	if s.ownerOf == nil {
		return apperr.Forbidden("error.forbidden")
	}
	return apperr.Forbidden("error.not_owner")
}

// GetForUpdate loads an entity and checks that actor may change it.
func (s *CRUDService[T]) GetForUpdate(ctx context.Context, actor Actor, id uint) (*T, error) {
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Authorize(actor, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Delete removes an entity after the ownership check.
func (s *CRUDService[T]) Delete(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.GetForUpdate(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// DeleteMany removes every entity in ids in one transaction. If any id is
// missing or not allowed for actor, nothing is deleted.
func (s *CRUDService[T]) DeleteMany(ctx context.Context, actor Actor, ids []uint) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, apperr.Validation("error.validation_failed", nil)
	}

	var deleted int64
	err := repository.Transaction(ctx, s.repo.DB(ctx), func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entities, err := repo.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(entities) != len(ids) {
			return apperr.NotFound(repo.Resource())
		}
		for i := range entities {
			if err := s.Authorize(actor, &entities[i]); err != nil {
				return err
			}
		}
		deleted, err = repo.DeleteIDs(ctx, ids)
		return err
	})
	return deleted, err
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
