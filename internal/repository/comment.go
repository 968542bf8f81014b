package repository

import (
	"context"

	"gamehub/backend/internal/models"

	"gorm.io/gorm"
)

// CommentRepository adds thread queries to the generic repository.
type CommentRepository struct {
	*Repository[models.Comment]
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{New[models.Comment](db, Config{
		Resource:     "comment",
		SortFields:   map[string]string{"created_at": "comments.created_at"},
		FilterFields: map[string]string{"post_id": "comments.post_id"},
		DefaultSort:  "comments.created_at ASC, comments.id ASC",
	})}
}

func (r *CommentRepository) WithTx(tx *gorm.DB) *CommentRepository {
	return &CommentRepository{r.Repository.WithTx(tx)}
}

// TopLevelScope keeps comments that are not replies and preloads their replies oldest first.
func TopLevelScope(db *gorm.DB) *gorm.DB {
	return db.Where("comments.parent_id IS NULL").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC, comments.id ASC")
		}).
		Preload("Replies.Author")
}

// DeleteReplies removes every reply of parentID and returns how many were deleted.
func (r *CommentRepository) DeleteReplies(ctx context.Context, parentID uint) (int64, error) {
	result := r.DB(ctx).Where("parent_id = ?", parentID).Delete(&models.Comment{})
	return result.RowsAffected, result.Error
}
