package service

import (
	"time"

	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/storage"
	"gamehub/backend/pkg/jwt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps carries everything the services are built from.
type Deps struct {
	DB              *gorm.DB
	Cache           *cache.Cache
	Tokens          *jwt.Manager
	Notifications   repository.NotificationStore
	Publisher       Publisher
	Storage         storage.Storage
	Auth            AuthOptions
	MaxUploadBytes  int64
	SupportedLocale func(string) bool
	Log             *zap.Logger
}

// Services is the full service layer of the application.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Relations     *RelationService
	Categories    *CategoryService
	Tags          *TagService
	Games         *GameService
	Reviews       *ReviewService
	Posts         *PostService
	Comments      *CommentService
	Reports       *ReportService
	Notifications *NotificationService
	Uploads       *UploadService
}

func New(d Deps) *Services {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Notifications == nil {
		d.Notifications = repository.NewMemoryNotificationStore()
	}
	if d.Auth.RefreshTTL == 0 {
		d.Auth.RefreshTTL = 30 * 24 * time.Hour
	}

	users := repository.NewUserRepository(d.DB)
	sessions := repository.NewSessionRepository(d.DB)
	relations := repository.NewRelationRepository(d.DB)
	categories := repository.NewCategoryRepository(d.DB)
	tags := repository.NewTagRepository(d.DB)
	games := repository.NewGameRepository(d.DB)
	reviews := repository.NewReviewRepository(d.DB)
	posts := repository.NewPostRepository(d.DB)
	comments := repository.NewCommentRepository(d.DB)
	reports := repository.NewReportRepository(d.DB)
	uploads := repository.NewUploadRepository(d.DB)

	notifications := NewNotificationService(d.Notifications, relations, d.Publisher, d.Log.Named("notifications"))

	s := &Services{
		Auth:          NewAuthService(d.DB, users, sessions, d.Tokens, d.Cache, d.Auth, d.SupportedLocale, d.Log.Named("auth")),
		Users:         NewUserService(users, relations, posts, d.SupportedLocale),
		Relations:     NewRelationService(d.DB, users, relations, notifications),
		Categories:    NewCategoryService(d.DB, categories, d.Cache),
		Tags:          NewTagService(d.DB, tags, d.Cache),
		Games:         NewGameService(d.DB, games, tags, users, d.Cache),
		Reviews:       NewReviewService(d.DB, reviews, games, d.Cache),
		Posts:         NewPostService(d.DB, posts, tags, users, relations, notifications),
		Notifications: notifications,
		Uploads:       NewUploadService(uploads, d.Storage, d.MaxUploadBytes, d.Log.Named("uploads")),
	}
	s.Comments = NewCommentService(d.DB, comments, s.Posts, relations, notifications)
	s.Reports = NewReportService(d.DB, reports, users, games, s.Posts, s.Comments, s.Reviews, d.Cache, notifications)
	return s
}
