package repository

import (
	"context"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"

	"gorm.io/gorm"
)

// SessionRepository stores refresh-token sessions.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	return TranslateError("session", r.db.WithContext(ctx).Create(s).Error)
}

func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	var s models.Session
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&s).Error; err != nil {
		return nil, TranslateError("session", err)
	}
	return &s, nil
}

// FindForUser loads a session only if it belongs to userID.
func (r *SessionRepository) FindForUser(ctx context.Context, id string, userID uint) (*models.Session, error) {
	var s models.Session
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&s).Error; err != nil {
		return nil, TranslateError("session", err)
	}
	return &s, nil
}

// RevokeIfActive revokes the session unless it was already revoked.
// It returns false when another request revoked it first.
func (r *SessionRepository) RevokeIfActive(ctx context.Context, id string, replacedBy *string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]any{"revoked_at": now, "replaced_by_id": replacedBy, "last_used_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RevokeFamily revokes every active session descending from the same login.
func (r *SessionRepository) RevokeFamily(ctx context.Context, familyID string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("family_id = ? AND revoked_at IS NULL", familyID).
		Update("revoked_at", now)
	return result.RowsAffected, result.Error
}

// RevokeUser revokes every active session of userID except the one with id exceptID.
func (r *SessionRepository) RevokeUser(ctx context.Context, userID uint, exceptID string, now time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Session{}).Where("user_id = ? AND revoked_at IS NULL", userID)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	result := q.Update("revoked_at", now)
	return result.RowsAffected, result.Error
}

// Revoke revokes a single session owned by userID.
func (r *SessionRepository) Revoke(ctx context.Context, id string, userID uint, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", id, userID).
		Update("revoked_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("session")
	}
	return nil
}

// ListActive returns the user's unrevoked, unexpired sessions, most recent first.
func (r *SessionRepository) ListActive(ctx context.Context, userID uint, now time.Time) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now).
		Order("last_used_at DESC").
		Find(&sessions).Error
	return sessions, err
}
