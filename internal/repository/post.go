package repository

import (
	"context"

	"gamehub/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository adds post, like and counter queries to the generic repository.
type PostRepository struct {
	*Repository[models.Post]
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{New[models.Post](db, Config{
		Resource: "post",
		SortFields: map[string]string{
			"published_at": "posts.published_at",
			"created_at":   "posts.created_at",
			"likes":        "posts.likes_count",
			"comments":     "posts.comments_count",
			"title":        "posts.title",
		},
		FilterFields: map[string]string{
			"game_id":     "posts.game_id",
			"category_id": "posts.category_id",
			"author_id":   "posts.author_id",
			"status":      "posts.status",
		},
		SearchFields: []string{"posts.title", "posts.content"},
		DefaultSort:  "posts.published_at DESC, posts.id DESC",
	})}
}

func (r *PostRepository) WithTx(tx *gorm.DB) *PostRepository {
	return &PostRepository{r.Repository.WithTx(tx)}
}

func (r *PostRepository) ReplaceTags(ctx context.Context, post *models.Post, tags []*models.Tag) error {
	return r.DB(ctx).Model(post).Association("Tags").Replace(tags)
}

// AddLike records a like. It returns false when the user already liked the post.
func (r *PostRepository) AddLike(ctx context.Context, userID, postID uint) (bool, error) {
	result := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PostLike{UserID: userID, PostID: postID})
	return result.RowsAffected == 1, result.Error
}

// RemoveLike deletes a like. It returns false when there was none.
func (r *PostRepository) RemoveLike(ctx context.Context, userID, postID uint) (bool, error) {
	result := r.DB(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{})
	return result.RowsAffected == 1, result.Error
}

// LikedPostIDs returns which of postIDs the user liked.
func (r *PostRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool)
	if userID == 0 || len(postIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	err := r.DB(ctx).Model(&models.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	for _, id := range ids {
		liked[id] = true
	}
	return liked, err
}

// AdjustCounter adds delta to a counter column of the post.
func (r *PostRepository) AdjustCounter(ctx context.Context, postID uint, column string, delta int) error {
	return r.DB(ctx).Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

func (r *PostRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return r.Count(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("author_id = ? AND status = ?", authorID, models.PostPublished)
	})
}

// PublishedScope keeps published posts only.
func PublishedScope(db *gorm.DB) *gorm.DB {
	return db.Where("posts.status = ?", models.PostPublished)
}

// TagSlugScope keeps posts tagged with the tag that has slug.
func TagSlugScope(slug string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.id IN (SELECT post_tags.post_id FROM post_tags JOIN tags ON tags.id = post_tags.tag_id WHERE tags.slug = ? AND tags.deleted_at IS NULL)", slug)
	}
}

// AuthorsScope keeps posts written by one of authorIDs.
func AuthorsScope(authorIDs []uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.author_id IN ?", authorIDs)
	}
}
