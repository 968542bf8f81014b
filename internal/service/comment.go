package service

import (
	"context"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/sanitize"

	"gorm.io/gorm"
)

type CommentInput struct {
	Content  string
	ParentID *uint
}

// CommentService handles threads of one level: top-level comments and their replies.
type CommentService struct {
	*CRUDService[models.Comment]
	db        *gorm.DB
	comments  *repository.CommentRepository
	posts     *PostService
	relations *repository.RelationRepository
	notifier  Notifier
}

func NewCommentService(db *gorm.DB, comments *repository.CommentRepository, posts *PostService,
	relations *repository.RelationRepository, notifier Notifier) *CommentService {
	return &CommentService{
		CRUDService: NewCRUDService(comments.Repository, func(c *models.Comment) uint { return c.AuthorID }, "Author"),
		db:          db,
		comments:    comments,
		posts:       posts,
		relations:   relations,
		notifier:    notifier,
	}
}

// ListForPost returns the post's top-level comments, oldest first, with their replies.
func (s *CommentService) ListForPost(ctx context.Context, viewer Actor, postID uint, page, limit int) (*repository.Page[models.Comment], error) {
	if _, _, err := s.posts.View(ctx, viewer, postID); err != nil {
		return nil, err
	}
	return s.List(ctx, repository.ListOptions{
		Page:    page,
		Limit:   limit,
		Filters: map[string]any{"post_id": postID},
		Scopes:  []repository.Scope{repository.TopLevelScope},
	})
}

func (s *CommentService) Create(ctx context.Context, actor Actor, postID uint, in CommentInput) (*models.Comment, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("error.unauthorized")
	}
	content := sanitize.Text(in.Content)
	if content == "" {
		return nil, apperr.Validation("error.validation_failed", nil)
	}

	post, err := s.posts.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostPublished {
		return nil, apperr.Validation("error.post_not_published", nil)
	}
	blocked, err := s.relations.IsBlockedEither(ctx, actor.ID, post.AuthorID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperr.Forbidden("error.blocked")
	}

	var parent *models.Comment
	if in.ParentID != nil {
		parent, err = s.comments.FindByID(ctx, *in.ParentID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, apperr.Validation("error.invalid_parent", nil)
			}
			return nil, err
		}
		if parent.PostID != postID || parent.ParentID != nil {
			return nil, apperr.Validation("error.invalid_parent", nil)
		}
	}

	comment := &models.Comment{PostID: postID, AuthorID: actor.ID, ParentID: in.ParentID, Content: content}
	err = repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.comments.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		return s.posts.posts.WithTx(tx).AdjustCounter(ctx, postID, "comments_count", 1)
	})
	if err != nil {
		return nil, err
	}

	data := map[string]string{"actor": s.posts.username(ctx, actor.ID), "post": post.Title}
	s.notifier.Notify(ctx, NotifyInput{
		RecipientID: post.AuthorID,
		ActorID:     actor.ID,
		Type:        models.NotificationComment,
		TargetType:  "post",
		TargetID:    postID,
		Data:        data,
	})
	if parent != nil && parent.AuthorID != post.AuthorID {
		s.notifier.Notify(ctx, NotifyInput{
			RecipientID: parent.AuthorID,
			ActorID:     actor.ID,
			Type:        models.NotificationReply,
			TargetType:  "comment",
			TargetID:    parent.ID,
			Data:        data,
		})
	}
	return s.Get(ctx, comment.ID)
}

// Update edits a comment. Only its author may do so, staff included.
func (s *CommentService) Update(ctx context.Context, actor Actor, id uint, content string) (*models.Comment, error) {
	comment, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actor.ID {
		return nil, apperr.Forbidden("error.not_owner")
	}
	content = sanitize.Text(content)
	if content == "" {
		return nil, apperr.Validation("error.validation_failed", nil)
	}
	if err := s.comments.Updates(ctx, comment, map[string]any{"content": content}); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a comment and, for a top-level comment, its replies.
func (s *CommentService) Delete(ctx context.Context, actor Actor, id uint) error {
	comment, err := s.GetForUpdate(ctx, actor, id)
	if err != nil {
		return err
	}
	return repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		return s.deleteInTx(ctx, tx, comment)
	})
}

func (s *CommentService) deleteInTx(ctx context.Context, tx *gorm.DB, comment *models.Comment) error {
	comments := s.comments.WithTx(tx)
	removed := int64(1)
	if comment.ParentID == nil {
		replies, err := comments.DeleteReplies(ctx, comment.ID)
		if err != nil {
			return err
		}
		removed += replies
	}
	if err := comments.Delete(ctx, comment.ID); err != nil {
		return err
	}
	return s.posts.posts.WithTx(tx).AdjustCounter(ctx, comment.PostID, "comments_count", -int(removed))
}
