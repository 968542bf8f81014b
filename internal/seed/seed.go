// Package seed fills a development database with demo content. Everything
// goes through the service layer so slugs, counters and notifications are
// produced the same way the API produces them.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"
	"gamehub/backend/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultPassword is set on every generated account.
const DefaultPassword = "password123"

var (
	releaseFrom = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	releaseTo   = time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)

	categoryNames = []string{"Action", "Adventure", "RPG", "Strategy", "Simulation", "Sports", "Puzzle", "News"}
	tagNames      = []string{"Singleplayer", "Multiplayer", "Co-op", "Open World", "Indie", "Roguelike", "Pixel Art", "Story Rich", "Competitive", "Early Access"}
)

// Options controls how much data a run creates.
type Options struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
	Users         int
	Games         int
	PostsPerUser  int

	// Seed makes runs reproducible. Re-running with the same seed skips
	// everything that already exists.
	Seed int64
}

// Stats counts the rows a run created.
type Stats struct {
	Users      int
	Categories int
	Tags       int
	Games      int
	Posts      int
	Comments   int
	Reviews    int
	Follows    int
}

type Seeder struct {
	db    *gorm.DB
	svc   *service.Services
	log   *zap.Logger
	faker *gofakeit.Faker
	opts  Options
}

func NewSeeder(db *gorm.DB, svc *service.Services, log *zap.Logger, opts Options) *Seeder {
	if opts.AdminPassword == "" {
		opts.AdminPassword = DefaultPassword
	}
	return &Seeder{db: db, svc: svc, log: log, faker: gofakeit.New(opts.Seed), opts: opts}
}

// Run creates the admin, taxonomy, games, users and their activity.
func (s *Seeder) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	admin, err := s.ensureAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	categories, err := s.seedCategories(ctx, admin, stats)
	if err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	tags, err := s.seedTags(ctx, stats)
	if err != nil {
		return nil, fmt.Errorf("seed tags: %w", err)
	}
	games, err := s.seedGames(ctx, admin, categories, tags, stats)
	if err != nil {
		return nil, fmt.Errorf("seed games: %w", err)
	}
	users, err := s.seedUsers(ctx, stats)
	if err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	if err := s.seedActivity(ctx, users, games, tags, stats); err != nil {
		return nil, fmt.Errorf("seed activity: %w", err)
	}

	s.log.Info("seed complete",
		zap.Int("users", stats.Users),
		zap.Int("games", stats.Games),
		zap.Int("posts", stats.Posts),
		zap.Int("comments", stats.Comments),
		zap.Int("reviews", stats.Reviews),
		zap.Int("follows", stats.Follows),
	)
	return stats, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context) (service.Actor, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", s.opts.AdminUsername).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		res, err := s.svc.Auth.Register(ctx, service.RegisterInput{
			Username: s.opts.AdminUsername,
			Email:    s.opts.AdminEmail,
			Password: s.opts.AdminPassword,
		}, service.ClientInfo{UserAgent: "seed"})
		if err != nil {
			return service.Actor{}, err
		}
		user = *res.User
	case err != nil:
		return service.Actor{}, err
	}

	if user.Role != models.RoleAdmin {
		if err := s.db.WithContext(ctx).Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
			return service.Actor{}, err
		}
	}
	return service.Actor{ID: user.ID, Role: models.RoleAdmin}, nil
}

func (s *Seeder) seedCategories(ctx context.Context, admin service.Actor, stats *Stats) ([]uint, error) {
	ids := make([]uint, 0, len(categoryNames))
	for _, name := range categoryNames {
		description := s.faker.Sentence(12)

		var existing models.Category
		err := s.db.WithContext(ctx).Where("slug = ?", validation.Slugify(name)).First(&existing).Error
		if err == nil {
			ids = append(ids, existing.ID)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		category, err := s.svc.Categories.Create(ctx, admin, service.TaxonomyInput{
			Name:        name,
			Description: description,
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, category.ID)
		stats.Categories++
	}
	return ids, nil
}

func (s *Seeder) seedTags(ctx context.Context, stats *Stats) ([]uint, error) {
	ids := make([]uint, 0, len(tagNames))
	for _, name := range tagNames {
		var existing models.Tag
		err := s.db.WithContext(ctx).Where("slug = ?", validation.Slugify(name)).First(&existing).Error
		if err == nil {
			ids = append(ids, existing.ID)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		tag, err := s.svc.Tags.Create(ctx, service.TaxonomyInput{Name: name})
		if err != nil {
			return nil, err
		}
		ids = append(ids, tag.ID)
		stats.Tags++
	}
	return ids, nil
}

func (s *Seeder) seedGames(ctx context.Context, admin service.Actor, categories, tags []uint, stats *Stats) ([]uint, error) {
	ids := make([]uint, 0, s.opts.Games)
	for range s.opts.Games {
		// Every value is drawn before the existence check so a rerun with the
		// same seed walks the same sequence.
		title := s.gameTitle()
		slug := validation.Slugify(title)
		release := s.faker.DateRange(releaseFrom, releaseTo)
		category := categories[s.faker.Number(0, len(categories)-1)]
		in := service.GameInput{
			Title:       title,
			Slug:        slug,
			Description: s.faker.Paragraph(2, 3, 12, "\n\n"),
			Developer:   s.faker.Company(),
			Publisher:   s.faker.Company(),
			ReleaseDate: &release,
			CoverURL:    fmt.Sprintf("https://picsum.photos/seed/%s/600/800", slug),
			CategoryID:  &category,
			TagIDs:      s.pick(tags, 3),
		}

		var existing models.Game
		err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&existing).Error
		if err == nil {
			ids = append(ids, existing.ID)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		game, err := s.svc.Games.Create(ctx, admin, in)
		if apperr.Is(err, apperr.KindConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, game.ID)
		stats.Games++
	}
	return ids, nil
}

func (s *Seeder) seedUsers(ctx context.Context, stats *Stats) ([]service.Actor, error) {
	users := make([]service.Actor, 0, s.opts.Users)
	for range s.opts.Users {
		username := s.username()
		bio := s.faker.Sentence(10)

		var existing models.User
		err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		res, err := s.svc.Auth.Register(ctx, service.RegisterInput{
			Username: username,
			Email:    strings.ToLower(username) + "@example.com",
			Password: DefaultPassword,
		}, service.ClientInfo{UserAgent: "seed"})
		if apperr.Is(err, apperr.KindConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if _, err := s.svc.Users.UpdateProfile(ctx, res.User.ID, service.UpdateProfileInput{Bio: &bio}); err != nil {
			return nil, err
		}
		users = append(users, service.Actor{ID: res.User.ID, Role: res.User.Role})
		stats.Users++
	}
	return users, nil
}

// seedActivity only touches users created in this run, so a second run with
// the same seed adds nothing.
func (s *Seeder) seedActivity(ctx context.Context, users []service.Actor, games, tags []uint, stats *Stats) error {
	if len(users) == 0 {
		return nil
	}

	var posts []uint
	for _, author := range users {
		for range s.opts.PostsPerUser {
			in := service.PostInput{
				Title:   strings.TrimSuffix(s.faker.Sentence(6), "."),
				Content: s.faker.Paragraph(3, 4, 14, "\n\n"),
				Status:  models.PostPublished,
				TagIDs:  s.pick(tags, 2),
			}
			if len(games) > 0 {
				game := games[s.faker.Number(0, len(games)-1)]
				in.GameID = &game
			}
			post, err := s.svc.Posts.Create(ctx, author, in)
			if err != nil {
				return err
			}
			posts = append(posts, post.ID)
			stats.Posts++
		}
	}

	for _, user := range users {
		for _, postID := range s.pick(posts, 3) {
			_, err := s.svc.Comments.Create(ctx, user, postID, service.CommentInput{Content: s.faker.Sentence(14)})
			if skippable(err) {
				continue
			}
			if err != nil {
				return err
			}
			stats.Comments++
		}

		for _, gameID := range s.pick(games, 2) {
			_, err := s.svc.Reviews.Create(ctx, user, gameID, service.ReviewInput{
				Rating: s.faker.Number(1, 5),
				Title:  strings.TrimSuffix(s.faker.Sentence(4), "."),
				Body:   s.faker.Paragraph(1, 3, 12, " "),
			})
			if skippable(err) {
				continue
			}
			if err != nil {
				return err
			}
			stats.Reviews++
		}

		for _, other := range s.pickUsers(users, 3) {
			if other.ID == user.ID {
				continue
			}
			err := s.svc.Relations.Follow(ctx, user.ID, other.ID)
			if skippable(err) {
				continue
			}
			if err != nil {
				return err
			}
			stats.Follows++
		}
	}
	return nil
}

// skippable reports errors caused by random choices colliding, such as a
// second review of the same game.
func skippable(err error) bool {
	return apperr.Is(err, apperr.KindConflict) ||
		apperr.Is(err, apperr.KindForbidden) ||
		apperr.Is(err, apperr.KindValidation)
}

func (s *Seeder) gameTitle() string {
	switch s.faker.Number(0, 2) {
	case 0:
		return fmt.Sprintf("%s %s", title(s.faker.AdjectiveDescriptive()), title(s.faker.NounCommon()))
	case 1:
		return fmt.Sprintf("The %s of %s", title(s.faker.NounCommon()), s.faker.City())
	default:
		return fmt.Sprintf("%s %d", s.faker.AppName(), s.faker.Number(2, 5))
	}
}

func (s *Seeder) username() string {
	name := validation.Slugify(s.faker.Username())
	name = strings.ReplaceAll(name, "-", "_")
	if len(name) > 24 {
		name = name[:24]
	}
	return fmt.Sprintf("%s%d", name, s.faker.Number(10, 9999))
}

// pick returns up to n distinct random elements of ids.
func (s *Seeder) pick(ids []uint, n int) []uint {
	if len(ids) == 0 {
		return nil
	}
	shuffled := append([]uint(nil), ids...)
	s.faker.ShuffleAnySlice(shuffled)
	return shuffled[:min(n, len(shuffled))]
}

func (s *Seeder) pickUsers(users []service.Actor, n int) []service.Actor {
	shuffled := append([]service.Actor(nil), users...)
	s.faker.ShuffleAnySlice(shuffled)
	return shuffled[:min(n, len(shuffled))]
}

func title(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
