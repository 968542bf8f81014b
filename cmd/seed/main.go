// Command seed fills the database with demo users, games and posts.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"gamehub/backend/internal/config"
	"gamehub/backend/internal/database"
	"gamehub/backend/internal/logger"
	"gamehub/backend/internal/seed"
	"gamehub/backend/internal/service"
	"gamehub/backend/pkg/jwt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	adminUsername := flag.String("admin", "admin", "Username of the admin account")
	adminEmail := flag.String("admin-email", "admin@gamehub.local", "Email of the admin account")
	adminPassword := flag.String("admin-password", seed.DefaultPassword, "Password of the admin account")
	users := flag.Int("users", 20, "Number of users to create")
	games := flag.Int("games", 30, "Number of games to create")
	posts := flag.Int("posts", 3, "Number of posts per user")
	rngSeed := flag.Int64("seed", 1, "Random seed, the same seed produces the same data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.IsProduction() {
		zlog.Fatal("refusing to seed a production database")
	}

	db, err := database.Connect(cfg.DatabaseURL, zlog.Named("gorm"))
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	// Notifications created while seeding stay in memory and are not published.
	services := service.New(service.Deps{
		DB:     db,
		Tokens: jwt.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL),
		Auth: service.AuthOptions{
			RefreshTTL:    cfg.RefreshTokenTTL,
			TOTPIssuer:    cfg.TOTPIssuer,
			BcryptCost:    bcrypt.DefaultCost,
			DefaultLocale: cfg.DefaultLocale,
		},
		SupportedLocale: func(string) bool { return true },
		Log:             zlog,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, err := seed.NewSeeder(db, services, zlog, seed.Options{
		AdminUsername: *adminUsername,
		AdminEmail:    *adminEmail,
		AdminPassword: *adminPassword,
		Users:         *users,
		Games:         *games,
		PostsPerUser:  *posts,
		Seed:          *rngSeed,
	}).Run(ctx)
	if err != nil {
		zlog.Fatal("seeding failed", zap.Error(err))
	}

	zlog.Info("database seeded",
		zap.Int("categories", stats.Categories),
		zap.Int("tags", stats.Tags),
		zap.String("password", seed.DefaultPassword),
	)
}
