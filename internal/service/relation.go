package service

import (
	"context"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"

	"gorm.io/gorm"
)

// RelationService manages follows and blocks.
type RelationService struct {
	db        *gorm.DB
	users     *repository.UserRepository
	relations *repository.RelationRepository
	notifier  Notifier
}

func NewRelationService(db *gorm.DB, users *repository.UserRepository, relations *repository.RelationRepository, notifier Notifier) *RelationService {
	return &RelationService{db: db, users: users, relations: relations, notifier: notifier}
}

func (s *RelationService) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return apperr.Validation("error.self_follow", nil)
	}
	followee, err := s.users.FindByID(ctx, followeeID)
	if err != nil {
		return err
	}
	if err := s.ensureNotBlocked(ctx, followerID, followeeID); err != nil {
		return err
	}
	if err := s.relations.Follow(ctx, followerID, followeeID); err != nil {
		return err
	}

	data := map[string]string{}
	if follower, err := s.users.FindByID(ctx, followerID); err == nil {
		data["actor"] = follower.Username
	}
	s.notifier.Notify(ctx, NotifyInput{
		RecipientID: followee.ID,
		ActorID:     followerID,
		Type:        models.NotificationFollow,
		TargetType:  "user",
		TargetID:    followerID,
		Data:        data,
	})
	return nil
}

func (s *RelationService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	removed, err := s.relations.Unfollow(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFoundKey("error.not_following")
	}
	return nil
}

// Block creates the block and drops follows in both directions atomically.
func (s *RelationService) Block(ctx context.Context, blockerID, blockedID uint) error {
	if blockerID == blockedID {
		return apperr.Validation("error.self_block", nil)
	}
	if _, err := s.users.FindByID(ctx, blockedID); err != nil {
		return err
	}
	return repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		relations := s.relations.WithTx(tx)
		if err := relations.Block(ctx, blockerID, blockedID); err != nil {
			return err
		}
		return relations.DeleteFollowsBetween(ctx, blockerID, blockedID)
	})
}

func (s *RelationService) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	removed, err := s.relations.Unblock(ctx, blockerID, blockedID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFoundKey("error.not_blocked")
	}
	return nil
}

func (s *RelationService) Followers(ctx context.Context, userID uint, page, limit int) (*repository.Page[models.User], error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	page, limit = repository.NormalizePage(page, limit)
	users, total, err := s.relations.Followers(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	return &repository.Page[models.User]{Items: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *RelationService) Following(ctx context.Context, userID uint, page, limit int) (*repository.Page[models.User], error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	page, limit = repository.NormalizePage(page, limit)
	users, total, err := s.relations.Following(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	return &repository.Page[models.User]{Items: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *RelationService) Blocked(ctx context.Context, userID uint, page, limit int) (*repository.Page[models.User], error) {
	page, limit = repository.NormalizePage(page, limit)
	users, total, err := s.relations.Blocked(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	return &repository.Page[models.User]{Items: users, Total: total, Page: page, Limit: limit}, nil
}

// IsBlockedEither reports whether a or b blocked the other. Anonymous viewers are never blocked.
func (s *RelationService) IsBlockedEither(ctx context.Context, a, b uint) (bool, error) {
	if a == 0 || b == 0 || a == b {
		return false, nil
	}
	return s.relations.IsBlockedEither(ctx, a, b)
}

func (s *RelationService) ensureNotBlocked(ctx context.Context, a, b uint) error {
	blocked, err := s.IsBlockedEither(ctx, a, b)
	if err != nil {
		return err
	}
	if blocked {
		return apperr.Forbidden("error.blocked")
	}
	return nil
}
