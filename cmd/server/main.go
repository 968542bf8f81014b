package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/config"
	"gamehub/backend/internal/database"
	"gamehub/backend/internal/hub"
	"gamehub/backend/internal/i18n"
	"gamehub/backend/internal/logger"
	"gamehub/backend/internal/notifier"
	"gamehub/backend/internal/observability"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/router"
	"gamehub/backend/internal/service"
	"gamehub/backend/internal/storage"
	"gamehub/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	// Swagger imports
	_ "gamehub/backend/docs" // This is important for swag to find the generated docs
)

const shutdownTimeout = 15 * time.Second

// @title           GameHub API
// @version         1.0
// @description     This is the API for the GameHub gaming community service.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := observability.InitTracing(cfg.TracingEnabled)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := database.Connect(cfg.DatabaseURL, zlog.Named("gorm"))
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	var (
		mongoClient   *mongo.Client
		notifications = repository.NewMemoryNotificationStore()
	)
	if cfg.MongoURI != "" {
		client, mdb, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		mongoClient = client
		notifications = repository.NewMongoNotificationStore(mdb.Collection(database.NotificationsCollection))
	} else {
		zlog.Warn("MONGO_URI not set, notifications are kept in memory")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
	} else {
		zlog.Warn("REDIS_URL not set, caching, rate limiting and token revocation are disabled")
	}
	appCache := cache.New(rdb, zlog.Named("cache"))

	bundle, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		return err
	}

	local, err := storage.NewLocal(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		return err
	}

	// With Redis every instance receives every user event; without it the
	// local hub is the only subscriber.
	liveHub := hub.NewHub()
	var publisher service.Publisher = liveHub
	if pub := notifier.New(rdb, zlog.Named("notifier")); pub.Enabled() {
		if err := pub.StartSubscriber(ctx, liveHub.SendRaw); err != nil {
			return err
		}
		publisher = pub
	}

	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	services := service.New(service.Deps{
		DB:            db,
		Cache:         appCache,
		Tokens:        tokens,
		Notifications: notifications,
		Publisher:     publisher,
		Storage:       local,
		Auth: service.AuthOptions{
			RefreshTTL:    cfg.RefreshTokenTTL,
			TOTPIssuer:    cfg.TOTPIssuer,
			BcryptCost:    bcrypt.DefaultCost,
			DefaultLocale: cfg.DefaultLocale,
		},
		MaxUploadBytes:  cfg.MaxUploadBytes(),
		SupportedLocale: bundle.Supported,
		Log:             zlog,
	})

	engine, err := router.New(router.Deps{
		Config:   cfg,
		Log:      zlog,
		Services: services,
		Bundle:   bundle,
		Tokens:   tokens,
		Cache:    appCache,
		Redis:    rdb,
		Hub:      liveHub,
		DB:       db,
		Mongo:    mongoClient,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server is running",
			zap.String("addr", srv.Addr),
			zap.String("swagger", fmt.Sprintf("http://localhost:%s/swagger/index.html", cfg.Port)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
