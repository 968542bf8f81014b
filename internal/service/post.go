package service

import (
	"context"
	"strings"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/sanitize"

	"gorm.io/gorm"
)

var postPreloads = []string{"Author", "Game", "Category", "Tags"}

type PostFilter struct {
	Query        string
	GameID       *uint
	CategorySlug string
	TagSlug      string
	AuthorID     *uint

	// Mine lists the viewer's own posts, drafts included.
	Mine  bool
	Sort  string
	Page  int
	Limit int
}

// PostList is one page of posts plus which of them the viewer liked.
type PostList struct {
	*repository.Page[models.Post]
	Liked map[uint]bool
}

type PostInput struct {
	Title      string
	Content    string
	Status     models.PostStatus
	GameID     *uint
	CategoryID *uint
	TagIDs     []uint
	CoverURL   string
}

type LikeState struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

type PostService struct {
	*CRUDService[models.Post]
	db        *gorm.DB
	posts     *repository.PostRepository
	tags      *repository.TagRepository
	users     *repository.UserRepository
	relations *repository.RelationRepository
	notifier  Notifier
	now       func() time.Time
}

func NewPostService(db *gorm.DB, posts *repository.PostRepository, tags *repository.TagRepository,
	users *repository.UserRepository, relations *repository.RelationRepository, notifier Notifier) *PostService {
	return &PostService{
		CRUDService: NewCRUDService(posts.Repository, func(p *models.Post) uint { return p.AuthorID }, postPreloads...),
		db:          db,
		posts:       posts,
		tags:        tags,
		users:       users,
		relations:   relations,
		notifier:    notifier,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Search lists posts visible to viewer. Drafts only show up when the viewer lists their own posts.
func (s *PostService) Search(ctx context.Context, viewer Actor, filter PostFilter) (*PostList, error) {
	opts := repository.ListOptions{
		Page:    filter.Page,
		Limit:   filter.Limit,
		Sort:    filter.Sort,
		Search:  strings.TrimSpace(filter.Query),
		Filters: map[string]any{},
		Scopes:  []repository.Scope{repository.ExcludeBlockedScope("posts.author_id", viewer.ID)},
	}
	switch {
	case filter.Mine:
		if !viewer.Authenticated() {
			return nil, apperr.Unauthorized("error.unauthorized")
		}
		opts.Filters["author_id"] = viewer.ID
	case filter.AuthorID != nil:
		opts.Filters["author_id"] = *filter.AuthorID
		opts.Scopes = append(opts.Scopes, repository.PublishedScope)
	default:
		opts.Scopes = append(opts.Scopes, repository.PublishedScope)
	}
	if filter.GameID != nil {
		opts.Filters["game_id"] = *filter.GameID
	}
	if filter.CategorySlug != "" {
		opts.Scopes = append(opts.Scopes, repository.CategorySlugScope("posts", filter.CategorySlug))
	}
	if filter.TagSlug != "" {
		opts.Scopes = append(opts.Scopes, repository.TagSlugScope(filter.TagSlug))
	}
	return s.list(ctx, viewer.ID, opts)
}

// Feed lists the published posts of the users viewerID follows, newest first.
func (s *PostService) Feed(ctx context.Context, viewerID uint, page, limit int) (*PostList, error) {
	followees, err := s.relations.FolloweeIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if len(followees) == 0 {
		page, limit = repository.NormalizePage(page, limit)
		return &PostList{
			Page:  &repository.Page[models.Post]{Items: []models.Post{}, Page: page, Limit: limit},
			Liked: map[uint]bool{},
		}, nil
	}
	return s.list(ctx, viewerID, repository.ListOptions{
		Page:  page,
		Limit: limit,
		Scopes: []repository.Scope{
			repository.PublishedScope,
			repository.AuthorsScope(followees),
			repository.ExcludeBlockedScope("posts.author_id", viewerID),
		},
	})
}

// ByAuthor lists an author's published posts.
func (s *PostService) ByAuthor(ctx context.Context, viewer Actor, authorID uint, page, limit int) (*PostList, error) {
	if _, err := s.users.FindByID(ctx, authorID); err != nil {
		return nil, err
	}
	return s.Search(ctx, viewer, PostFilter{AuthorID: &authorID, Page: page, Limit: limit})
}

func (s *PostService) list(ctx context.Context, viewerID uint, opts repository.ListOptions) (*PostList, error) {
	page, err := s.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(page.Items))
	for i, p := range page.Items {
		ids[i] = p.ID
	}
	liked, err := s.posts.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	return &PostList{Page: page, Liked: liked}, nil
}

// View loads a post for viewer. Drafts are visible to their author and staff only,
// and posts of authors in a block relation with the viewer are hidden.
func (s *PostService) View(ctx context.Context, viewer Actor, id uint) (*models.Post, bool, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if err := s.ensureVisible(ctx, viewer, post); err != nil {
		return nil, false, err
	}
	liked, err := s.posts.LikedPostIDs(ctx, viewer.ID, []uint{post.ID})
	if err != nil {
		return nil, false, err
	}
	return post, liked[post.ID], nil
}

func (s *PostService) ensureVisible(ctx context.Context, viewer Actor, post *models.Post) error {
	if post.AuthorID == viewer.ID {
		return nil
	}
	if post.Status != models.PostPublished && !viewer.IsStaff() {
		return apperr.NotFound("post")
	}
	if viewer.Authenticated() {
		blocked, err := s.relations.IsBlockedEither(ctx, viewer.ID, post.AuthorID)
		if err != nil {
			return err
		}
		if blocked {
			return apperr.NotFound("post")
		}
	}
	return nil
}

func (s *PostService) Create(ctx context.Context, actor Actor, in PostInput) (*models.Post, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("error.unauthorized")
	}
	post := &models.Post{AuthorID: actor.ID}
	if err := s.save(ctx, post, in); err != nil {
		return nil, err
	}
	return s.Get(ctx, post.ID)
}

// Update replaces the post's fields and tags. PublishedAt is kept from the first publication.
func (s *PostService) Update(ctx context.Context, actor Actor, id uint, in PostInput) (*models.Post, error) {
	post, err := s.GetForUpdate(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, post, in); err != nil {
		return nil, err
	}
	return s.Get(ctx, post.ID)
}

// postColumns are the columns an edit may write. Like and comment counters
// are only changed by AdjustCounter.
var postColumns = []string{"title", "content", "status", "published_at", "game_id", "category_id", "cover_url"}

func (s *PostService) save(ctx context.Context, post *models.Post, in PostInput) error {
	status := in.Status
	if status == "" {
		status = models.PostDraft
	}
	if status != models.PostDraft && status != models.PostPublished {
		return apperr.Validation("error.validation_failed", nil)
	}
	content := sanitize.HTML(in.Content)
	title := sanitize.Text(in.Title)
	if content == "" || title == "" {
		return apperr.Validation("error.validation_failed", nil)
	}

	post.Title = title
	post.Content = content
	post.Status = status
	post.GameID = in.GameID
	post.CategoryID = in.CategoryID
	post.CoverURL = strings.TrimSpace(in.CoverURL)
	post.Game = nil
	post.Category = nil
	post.Tags = nil
	if status == models.PostPublished && post.PublishedAt == nil {
		now := s.now()
		post.PublishedAt = &now
	}

	return repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		if in.GameID != nil {
			if _, err := repository.NewGameRepository(tx).FindByID(ctx, *in.GameID); err != nil {
				return err
			}
		}
		if in.CategoryID != nil {
			if _, err := repository.NewCategoryRepository(tx).FindByID(ctx, *in.CategoryID); err != nil {
				return err
			}
		}
		tagIDs := uniqueIDs(in.TagIDs)
		tags, err := s.tags.WithTx(tx).FindTags(ctx, tagIDs)
		if err != nil {
			return err
		}
		if len(tags) != len(tagIDs) {
			return apperr.NotFound("tag")
		}
		posts := s.posts.WithTx(tx)
		if post.ID == 0 {
			err = posts.Create(ctx, post)
		} else {
			err = posts.UpdateColumns(ctx, post, postColumns...)
		}
		if err != nil {
			return err
		}
		return posts.ReplaceTags(ctx, post, tags)
	})
}

// deleteInTx removes a post inside tx.
func (s *PostService) deleteInTx(ctx context.Context, tx *gorm.DB, postID uint) error {
	return s.posts.WithTx(tx).Delete(ctx, postID)
}

// Like records a like. Liking twice is a no-op.
func (s *PostService) Like(ctx context.Context, actor Actor, postID uint) (*LikeState, error) {
	post, err := s.likeable(ctx, actor, postID)
	if err != nil {
		return nil, err
	}

	var added bool
	err = repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		posts := s.posts.WithTx(tx)
		if added, err = posts.AddLike(ctx, actor.ID, postID); err != nil || !added {
			return err
		}
		return posts.AdjustCounter(ctx, postID, "likes_count", 1)
	})
	if err != nil {
		return nil, err
	}

	if added {
		s.notifier.Notify(ctx, NotifyInput{
			RecipientID: post.AuthorID,
			ActorID:     actor.ID,
			Type:        models.NotificationPostLike,
			TargetType:  "post",
			TargetID:    post.ID,
			Data:        map[string]string{"actor": s.username(ctx, actor.ID), "post": post.Title},
		})
	}
	return s.likeState(ctx, postID, true)
}

// Unlike removes a like. Unliking a post that was not liked is a no-op.
func (s *PostService) Unlike(ctx context.Context, actor Actor, postID uint) (*LikeState, error) {
	if _, err := s.likeable(ctx, actor, postID); err != nil {
		return nil, err
	}
	err := repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		posts := s.posts.WithTx(tx)
		removed, err := posts.RemoveLike(ctx, actor.ID, postID)
		if err != nil || !removed {
			return err
		}
		return posts.AdjustCounter(ctx, postID, "likes_count", -1)
	})
	if err != nil {
		return nil, err
	}
	return s.likeState(ctx, postID, false)
}

func (s *PostService) likeable(ctx context.Context, actor Actor, postID uint) (*models.Post, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("error.unauthorized")
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostPublished {
		return nil, apperr.NotFound("post")
	}
	blocked, err := s.relations.IsBlockedEither(ctx, actor.ID, post.AuthorID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperr.Forbidden("error.blocked")
	}
	return post, nil
}

func (s *PostService) likeState(ctx context.Context, postID uint, liked bool) (*LikeState, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &LikeState{Liked: liked, LikesCount: post.LikesCount}, nil
}

func (s *PostService) username(ctx context.Context, userID uint) string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Username
}
