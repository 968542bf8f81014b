// Package router assembles the gin engine: global middleware, health and
// metrics endpoints, and the /api/v1 routes.
package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gamehub/backend/internal/auth"
	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/config"
	"gamehub/backend/internal/database"
	"gamehub/backend/internal/handler"
	"gamehub/backend/internal/hub"
	"gamehub/backend/internal/i18n"
	"gamehub/backend/internal/middleware"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"
	"gamehub/backend/internal/validation"
	"gamehub/backend/pkg/jwt"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	serviceName  = "gamehub-api"
	readyTimeout = 2 * time.Second
)

// Deps is everything the engine is built from. Mongo and Redis may be nil.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Services *service.Services
	Bundle   *i18n.Bundle
	Tokens   *jwt.Manager
	Cache    *cache.Cache
	Redis    *redis.Client
	Hub      *hub.Hub
	DB       *gorm.DB
	Mongo    *mongo.Client
}

// New builds the engine and registers every route.
func New(d Deps) (*gin.Engine, error) {
	if err := setupValidator(d.Bundle); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(
		ginzap.Ginzap(d.Log, time.RFC3339, true),
		ginzap.RecoveryWithZap(d.Log, true),
		middleware.RequestID(),
		otelgin.Middleware(serviceName),
		cors.New(cors.Config{
			AllowOrigins:     d.Config.Origins(),
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Content-Language", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.Metrics(),
		i18n.Middleware(d.Bundle),
		middleware.ErrorHandler(d.Log),
	)

	// Swagger route
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", readiness(d))

	if base := d.Config.UploadBaseURL; strings.HasPrefix(base, "/") {
		r.Static(base, d.Config.UploadDir)
	}

	registerAPI(r.Group("/api/v1"), d)
	return r, nil
}

func setupValidator(b *i18n.Bundle) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	if err := validation.Register(v); err != nil {
		return fmt.Errorf("register validation rules: %w", err)
	}
	return b.RegisterValidator(v, validation.CustomTags)
}

func registerAPI(api *gin.RouterGroup, d Deps) {
	svc := d.Services
	authH := handler.NewAuthHandler(svc.Auth)
	userH := handler.NewUserHandler(svc.Users)
	relationH := handler.NewRelationHandler(svc.Relations)
	categoryH := handler.NewCategoryHandler(svc.Categories)
	tagH := handler.NewTagHandler(svc.Tags)
	gameH := handler.NewGameHandler(svc.Games)
	reviewH := handler.NewReviewHandler(svc.Reviews)
	postH := handler.NewPostHandler(svc.Posts)
	commentH := handler.NewCommentHandler(svc.Comments)
	reportH := handler.NewReportHandler(svc.Reports)
	notificationH := handler.NewNotificationHandler(svc.Notifications, d.Hub)
	uploadH := handler.NewUploadHandler(svc.Uploads)

	required := auth.AuthMiddleware(d.Tokens, d.Cache)
	optional := auth.OptionalAuthMiddleware(d.Tokens, d.Cache)
	staff := auth.RequireRoles(svc.Users.Role, models.RoleModerator, models.RoleAdmin)
	adminOnly := auth.RequireRoles(svc.Users.Role, models.RoleAdmin)
	limit := func(name string, n int, window time.Duration) gin.HandlerFunc {
		if d.Config.Env == "test" {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(d.Redis, name, n, window)
	}

	// Auth routes
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", limit("register", 5, 10*time.Minute), authH.Register)
		authRoutes.POST("/login", limit("login", 10, 5*time.Minute), authH.Login)
		authRoutes.POST("/refresh", authH.Refresh)

		session := authRoutes.Group("", required)
		session.POST("/logout", authH.Logout)
		session.POST("/logout-all", authH.LogoutAll)
		session.GET("/sessions", authH.ListSessions)
		session.DELETE("/sessions/:id", authH.RevokeSession)
		session.POST("/password", authH.ChangePassword)
		session.POST("/2fa/setup", authH.SetupTwoFactor)
		session.POST("/2fa/enable", authH.EnableTwoFactor)
		session.POST("/2fa/disable", authH.DisableTwoFactor)
	}

	// User routes
	userRoutes := api.Group("/users")
	{
		userRoutes.GET("", optional, userH.SearchUsers) // Must be before /:id
		userRoutes.GET("/me", required, userH.GetMe)
		userRoutes.PATCH("/me", required, userH.UpdateMe)
		userRoutes.GET("/me/blocks", required, relationH.Blocked)
		userRoutes.GET("/:id", optional, userH.GetUserByID)
		userRoutes.GET("/:id/followers", relationH.Followers)
		userRoutes.GET("/:id/following", relationH.Following)
		userRoutes.GET("/:id/posts", optional, postH.GetUserPosts)
		userRoutes.POST("/:id/follow", required, relationH.Follow)
		userRoutes.DELETE("/:id/follow", required, relationH.Unfollow)
		userRoutes.POST("/:id/block", required, relationH.Block)
		userRoutes.DELETE("/:id/block", required, relationH.Unblock)
	}

	api.GET("/categories", categoryH.ListCategories)
	api.GET("/categories/:slug", categoryH.GetCategory)
	api.GET("/tags", tagH.GetTags)

	// Game routes
	gameRoutes := api.Group("/games")
	{
		gameRoutes.GET("", optional, gameH.GetGames)
		gameRoutes.GET("/:id", optional, gameH.GetGameByID)
		gameRoutes.POST("/:id/favorite", required, gameH.ToggleFavoriteGame)
		gameRoutes.GET("/:id/reviews", reviewH.ListReviews)
		gameRoutes.POST("/:id/reviews", required, reviewH.CreateReview)
	}
	api.PUT("/reviews/:id", required, reviewH.UpdateReview)
	api.DELETE("/reviews/:id", required, reviewH.DeleteReview)

	// Post routes
	postRoutes := api.Group("/posts")
	{
		postRoutes.GET("", optional, postH.GetPosts)
		postRoutes.POST("", required, postH.CreatePost)
		postRoutes.GET("/:id", optional, postH.GetPost)
		postRoutes.PUT("/:id", required, postH.UpdatePost)
		postRoutes.DELETE("/:id", required, postH.DeletePost)
		postRoutes.POST("/:id/like", required, postH.LikePost)
		postRoutes.DELETE("/:id/like", required, postH.UnlikePost)
		postRoutes.GET("/:id/comments", optional, commentH.ListComments)
		postRoutes.POST("/:id/comments", required, commentH.CreateComment)
	}
	api.GET("/feed", required, postH.GetFeed)
	api.PUT("/comments/:id", required, commentH.UpdateComment)
	api.DELETE("/comments/:id", required, commentH.DeleteComment)

	api.POST("/reports", required, limit("report", 20, time.Hour), reportH.CreateReport)
	moderation := api.Group("/moderation", required, staff)
	{
		moderation.GET("/reports", reportH.ListReports)
		moderation.POST("/reports/batch", reportH.ResolveReports)
		moderation.POST("/reports/:id/resolve", reportH.ResolveReport)
	}

	// Notification routes
	notificationRoutes := api.Group("/notifications", required)
	{
		notificationRoutes.GET("", notificationH.ListNotifications)
		notificationRoutes.GET("/unread-count", notificationH.UnreadCount)
		notificationRoutes.GET("/stream", notificationH.Stream)
		notificationRoutes.POST("/read", notificationH.MarkRead)
		notificationRoutes.POST("/read-all", notificationH.MarkAllRead)
		notificationRoutes.DELETE("/:id", notificationH.DeleteNotification)
	}

	api.POST("/uploads", required, uploadH.CreateUpload)
	api.GET("/uploads/:id", uploadH.GetUpload)
	api.DELETE("/uploads/:id", required, uploadH.DeleteUpload)

	// Admin routes (protected by auth and a fresh role check)
	adminRoutes := api.Group("/admin", required)
	{
		tags := adminRoutes.Group("/tags", staff)
		{
			tags.POST("", tagH.CreateTag)
			tags.PUT("/:id", tagH.UpdateTag)
			tags.DELETE("/:id", tagH.DeleteTag)
		}

		admin := adminRoutes.Group("", adminOnly)
		admin.PATCH("/users/:id/role", userH.UpdateRole)
		admin.POST("/categories", categoryH.CreateCategory)
		admin.PUT("/categories/:id", categoryH.UpdateCategory)
		admin.DELETE("/categories/:id", categoryH.DeleteCategory)
		admin.POST("/games", gameH.CreateGame)
		admin.PUT("/games/:id", gameH.UpdateGame)
		admin.DELETE("/games/:id", gameH.DeleteGame)
	}
}

// readiness pings every configured backing store. Mongo and Redis are optional.
func readiness(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		checks := gin.H{}
		ready := true
		check := func(name string, configured bool, ping func(context.Context) error) {
			switch {
			case !configured:
				checks[name] = "unavailable"
			case ping(ctx) != nil:
				checks[name] = "down"
				ready = false
			default:
				checks[name] = "up"
			}
		}
		check("postgres", d.DB != nil, func(ctx context.Context) error { return database.Ping(ctx, d.DB) })
		check("mongo", d.Mongo != nil, func(ctx context.Context) error { return d.Mongo.Ping(ctx, nil) })
		check("redis", d.Cache.Enabled(), d.Cache.Ping)

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ready": ready, "checks": checks})
	}
}
