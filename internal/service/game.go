package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/validation"

	"github.com/agnivade/levenshtein"
	"gorm.io/gorm"
)

const (
	maxSuggestions      = 5
	suggestionPoolLimit = 2000
)

var gamePreloads = []string{"Category", "Tags"}

// gameColumns are the columns an edit may write. The rating aggregate is
// owned by the review service.
var gameColumns = []string{"title", "slug", "description", "developer", "publisher", "release_date", "cover_url", "steam_url", "category_id"}

type GameFilter struct {
	Query         string
	CategorySlug  string
	TagIDs        []uint
	FavoritesOnly bool
	Sort          string
	Page          int
	Limit         int
}

// GameList is one page of games plus the viewer's favorites among them and,
// when a search matched nothing, the closest titles.
type GameList struct {
	*repository.Page[models.Game]
	Favorites   map[uint]bool
	Suggestions []string
}

type GameInput struct {
	Title       string
	Slug        string
	Description string
	Developer   string
	Publisher   string
	ReleaseDate *time.Time
	CoverURL    string
	SteamURL    string
	CategoryID  *uint
	TagIDs      []uint
}

type GameService struct {
	*CRUDService[models.Game]
	db    *gorm.DB
	games *repository.GameRepository
	tags  *repository.TagRepository
	users *repository.UserRepository
	cache *cache.Cache
}

func NewGameService(db *gorm.DB, games *repository.GameRepository, tags *repository.TagRepository,
	users *repository.UserRepository, c *cache.Cache) *GameService {
	return &GameService{
		CRUDService: NewCRUDService[models.Game](games.Repository, nil, gamePreloads...),
		db:          db,
		games:       games,
		tags:        tags,
		users:       users,
		cache:       c,
	}
}

// Search lists games matching filter as seen by viewerID.
func (s *GameService) Search(ctx context.Context, viewerID uint, filter GameFilter) (*GameList, error) {
	opts := repository.ListOptions{
		Page:   filter.Page,
		Limit:  filter.Limit,
		Sort:   filter.Sort,
		Search: strings.TrimSpace(filter.Query),
	}
	if filter.CategorySlug != "" {
		opts.Scopes = append(opts.Scopes, repository.CategorySlugScope("games", filter.CategorySlug))
	}
	if len(filter.TagIDs) > 0 {
		opts.Scopes = append(opts.Scopes, repository.AnyTagScope(filter.TagIDs))
	}
	if filter.FavoritesOnly {
		if viewerID == 0 {
			return nil, apperr.Unauthorized("error.unauthorized")
		}
		opts.Scopes = append(opts.Scopes, repository.FavoritesScope(viewerID))
	}

	page, err := s.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := &GameList{Page: page, Favorites: map[uint]bool{}}

	if viewerID != 0 && len(page.Items) > 0 {
		ids := make([]uint, len(page.Items))
		for i, g := range page.Items {
			ids[i] = g.ID
		}
		if out.Favorites, err = s.users.FavoriteGameIDs(ctx, viewerID, ids...); err != nil {
			return nil, err
		}
	}

	if page.Total == 0 && opts.Search != "" {
		titles, err := s.games.Titles(ctx, suggestionPoolLimit)
		if err != nil {
			return nil, err
		}
		out.Suggestions = Suggest(opts.Search, titles, maxSuggestions)
	}
	return out, nil
}

// Suggest returns up to n titles within max(2, len(q)/3) edits of q, nearest
// first. A title matches on its full text or on any of its words.
func Suggest(q string, titles []string, n int) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	threshold := max(2, len([]rune(q))/3)

	type candidate struct {
		title    string
		distance int
	}
	var candidates []candidate
	for _, title := range titles {
		lower := strings.ToLower(title)
		best := levenshtein.ComputeDistance(q, lower)
		for _, word := range strings.Fields(lower) {
			best = min(best, levenshtein.ComputeDistance(q, word))
		}
		if best <= threshold {
			candidates = append(candidates, candidate{title: title, distance: best})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].title < candidates[j].title
	})

	out := make([]string, 0, min(n, len(candidates)))
	for _, c := range candidates {
		if len(out) == n {
			break
		}
		out = append(out, c.title)
	}
	return out
}

// Get returns a cached game and whether viewerID marked it as favorite.
func (s *GameService) Get(ctx context.Context, viewerID, id uint) (*models.Game, bool, error) {
	game, err := cache.Aside(ctx, s.cache, cache.GameKey(id), cache.GameTTL, func(ctx context.Context) (*models.Game, error) {
		return s.games.FindByID(ctx, id, gamePreloads...)
	})
	if err != nil {
		return nil, false, err
	}
	if viewerID == 0 {
		return game, false, nil
	}
	favorites, err := s.users.FavoriteGameIDs(ctx, viewerID, id)
	if err != nil {
		return nil, false, err
	}
	return game, favorites[id], nil
}

// ToggleFavorite flips the game in the user's favorites and returns the new state.
func (s *GameService) ToggleFavorite(ctx context.Context, userID, gameID uint) (bool, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return false, err
	}
	return s.users.ToggleFavorite(ctx, userID, game)
}

func (s *GameService) Create(ctx context.Context, actor Actor, in GameInput) (*models.Game, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("error.forbidden")
	}
	game := &models.Game{}
	if err := s.save(ctx, game, in); err != nil {
		return nil, err
	}
	return s.games.FindByID(ctx, game.ID, gamePreloads...)
}

// Update replaces every field of the game, including its tags.
func (s *GameService) Update(ctx context.Context, actor Actor, id uint, in GameInput) (*models.Game, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("error.forbidden")
	}
	game, err := s.games.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, game, in); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.GameKey(id))
	return s.games.FindByID(ctx, id, gamePreloads...)
}

func (s *GameService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("error.forbidden")
	}
	if err := s.games.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.GameKey(id))
	return nil
}

func (s *GameService) save(ctx context.Context, game *models.Game, in GameInput) error {
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = validation.Slugify(in.Title)
	}
	if !validation.IsSlug(slug) {
		return apperr.Validation("error.validation_failed", nil)
	}

	game.Title = strings.TrimSpace(in.Title)
	game.Slug = slug
	game.Description = in.Description
	game.Developer = in.Developer
	game.Publisher = in.Publisher
	game.ReleaseDate = in.ReleaseDate
	game.CoverURL = in.CoverURL
	game.SteamURL = in.SteamURL
	game.CategoryID = in.CategoryID
	game.Category = nil
	game.Tags = nil

	return repository.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		if in.CategoryID != nil {
			if _, err := repository.NewCategoryRepository(tx).FindByID(ctx, *in.CategoryID); err != nil {
				return err
			}
		}
		tags, err := s.tags.WithTx(tx).FindTags(ctx, uniqueIDs(in.TagIDs))
		if err != nil {
			return err
		}
		if len(tags) != len(uniqueIDs(in.TagIDs)) {
			return apperr.NotFound("tag")
		}
		games := s.games.WithTx(tx)
		if game.ID == 0 {
			err = games.Create(ctx, game)
		} else {
			err = games.UpdateColumns(ctx, game, gameColumns...)
		}
		if err != nil {
			return err
		}
		return games.ReplaceTags(ctx, game, tags)
	})
}
