package repository

import (
	"context"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"

	"gorm.io/gorm"
)

// RelationRepository stores follows and blocks between users.
type RelationRepository struct {
	db *gorm.DB
}

func NewRelationRepository(db *gorm.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

func (r *RelationRepository) WithTx(tx *gorm.DB) *RelationRepository {
	return &RelationRepository{db: tx}
}

// Follow creates a follow. A duplicate follow is a conflict.
func (r *RelationRepository) Follow(ctx context.Context, followerID, followeeID uint) error {
	err := r.db.WithContext(ctx).Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
	if IsUniqueViolation(err) {
		return apperr.Conflict("error.already_following", nil)
	}
	return err
}

// Unfollow deletes a follow and reports whether one existed.
func (r *RelationRepository) Unfollow(ctx context.Context, followerID, followeeID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	return result.RowsAffected > 0, result.Error
}

// DeleteFollowsBetween removes follows in both directions.
func (r *RelationRepository) DeleteFollowsBetween(ctx context.Context, a, b uint) error {
	return r.db.WithContext(ctx).
		Where("(follower_id = ? AND followee_id = ?) OR (follower_id = ? AND followee_id = ?)", a, b, b, a).
		Delete(&models.Follow{}).Error
}

func (r *RelationRepository) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

// Followers lists the users following userID, newest follow first.
func (r *RelationRepository) Followers(ctx context.Context, userID uint, page, limit int) ([]models.User, int64, error) {
	return r.listUsers(ctx, "follows.followee_id = ?", "follows.follower_id", userID, page, limit)
}

// Following lists the users that userID follows, newest follow first.
func (r *RelationRepository) Following(ctx context.Context, userID uint, page, limit int) ([]models.User, int64, error) {
	return r.listUsers(ctx, "follows.follower_id = ?", "follows.followee_id", userID, page, limit)
}

func (r *RelationRepository) listUsers(ctx context.Context, where, joinColumn string, userID uint, page, limit int) ([]models.User, int64, error) {
	page, limit = NormalizePage(page, limit)
	q := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON "+joinColumn+" = users.id").
		Where(where, userID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := q.Order("follows.created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	return users, total, err
}

// FollowCounts returns how many users follow userID and how many userID follows.
func (r *RelationRepository) FollowCounts(ctx context.Context, userID uint) (followers, following int64, err error) {
	db := r.db.WithContext(ctx).Model(&models.Follow{})
	if err = db.Session(&gorm.Session{}).Where("followee_id = ?", userID).Count(&followers).Error; err != nil {
		return
	}
	err = db.Session(&gorm.Session{}).Where("follower_id = ?", userID).Count(&following).Error
	return
}

// FolloweeIDs returns the ids of every user followerID follows.
func (r *RelationRepository) FolloweeIDs(ctx context.Context, followerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", followerID).
		Pluck("followee_id", &ids).Error
	return ids, err
}

// Block creates a block. A duplicate block is a conflict.
func (r *RelationRepository) Block(ctx context.Context, blockerID, blockedID uint) error {
	err := r.db.WithContext(ctx).Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
	if IsUniqueViolation(err) {
		return apperr.Conflict("error.already_blocked", nil)
	}
	return err
}

// Unblock deletes a block and reports whether one existed.
func (r *RelationRepository) Unblock(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{})
	return result.RowsAffected > 0, result.Error
}

// HasBlocked reports whether blockerID blocked blockedID.
func (r *RelationRepository) HasBlocked(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}

// IsBlockedEither reports whether a block exists in either direction.
func (r *RelationRepository) IsBlockedEither(ctx context.Context, a, b uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// Blocked lists the users blocked by blockerID, newest block first.
func (r *RelationRepository) Blocked(ctx context.Context, blockerID uint, page, limit int) ([]models.User, int64, error) {
	page, limit = NormalizePage(page, limit)
	q := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN blocks ON blocks.blocked_id = users.id").
		Where("blocks.blocker_id = ?", blockerID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	err := q.Order("blocks.created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error
	return users, total, err
}

// ExcludeBlockedScope hides rows whose column references a user that blocked viewerID
// or that viewerID blocked.
func ExcludeBlockedScope(column string, viewerID uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if viewerID == 0 {
			return db
		}
		return db.Where(column+" NOT IN (SELECT blocked_id FROM blocks WHERE blocker_id = ?)", viewerID).
			Where(column+" NOT IN (SELECT blocker_id FROM blocks WHERE blocked_id = ?)", viewerID)
	}
}
