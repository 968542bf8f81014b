package handler

import (
	"net/http"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/auth"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// region --- DTOs ---

type GameRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=255"`
	Slug        string `json:"slug" binding:"omitempty,max=255,slug"`
	Description string `json:"description" binding:"max=10000"`
	Developer   string `json:"developer" binding:"max=255"`
	Publisher   string `json:"publisher" binding:"max=255"`
	ReleaseDate string `json:"release_date" binding:"omitempty,datetime=2006-01-02" example:"2020-09-17"`
	CoverURL    string `json:"cover_url" binding:"omitempty,url,max=512"`
	SteamURL    string `json:"steam_url" binding:"omitempty,url,max=512"`
	CategoryID  *uint  `json:"category_id"`
	TagIDs      []uint `json:"tag_ids" binding:"max=20"` // IDs of the tags to associate with the game
}

func (r GameRequest) input() service.GameInput {
	in := service.GameInput{
		Title:       r.Title,
		Slug:        r.Slug,
		Description: r.Description,
		Developer:   r.Developer,
		Publisher:   r.Publisher,
		CoverURL:    r.CoverURL,
		SteamURL:    r.SteamURL,
		CategoryID:  r.CategoryID,
		TagIDs:      r.TagIDs,
	}
	// The binding already checked the layout.
	if t, err := time.Parse(dateLayout, r.ReleaseDate); err == nil {
		in.ReleaseDate = &t
	}
	return in
}

type GameResponse struct {
	ID            uint              `json:"id"`
	Title         string            `json:"title"`
	Slug          string            `json:"slug"`
	Description   string            `json:"description"`
	Developer     string            `json:"developer"`
	Publisher     string            `json:"publisher"`
	ReleaseDate   string            `json:"release_date,omitempty"`
	CoverURL      string            `json:"cover_url"`
	SteamURL      string            `json:"steam_url"`
	Category      *CategoryResponse `json:"category,omitempty"`
	Tags          []TagResponse     `json:"tags"`
	AverageRating decimal.Decimal   `json:"average_rating" swaggertype:"string" example:"4.33"`
	ReviewCount   int               `json:"review_count"`
	IsFavorite    bool              `json:"is_favorite"`
}

func newGameResponse(game models.Game, favoriteIDs map[uint]bool) GameResponse {
	resp := GameResponse{
		ID:            game.ID,
		Title:         game.Title,
		Slug:          game.Slug,
		Description:   game.Description,
		Developer:     game.Developer,
		Publisher:     game.Publisher,
		CoverURL:      game.CoverURL,
		SteamURL:      game.SteamURL,
		Category:      newCategoryRef(game.Category),
		Tags:          newTagResponses(game.Tags),
		AverageRating: game.AverageRating,
		ReviewCount:   game.ReviewCount,
		IsFavorite:    favoriteIDs[game.ID],
	}
	if game.ReleaseDate != nil {
		resp.ReleaseDate = game.ReleaseDate.Format(dateLayout)
	}
	return resp
}

// GameSummary is the game block embedded in posts.
type GameSummary struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

func newGameSummary(game *models.Game) *GameSummary {
	if game == nil || game.ID == 0 {
		return nil
	}
	return &GameSummary{ID: game.ID, Title: game.Title, Slug: game.Slug}
}

// PaginatedGameResponse defines the structure for a paginated list of games.
// Suggestions is filled when a search matched nothing.
type PaginatedGameResponse struct {
	Data        []GameResponse `json:"data"`
	Meta        PaginationMeta `json:"meta"`
	Suggestions []string       `json:"suggestions,omitempty"`
}

type GameQuery struct {
	ListQuery
	Q             string `form:"q" binding:"max=100"`
	Category      string `form:"category" binding:"omitempty,slug"`
	TagIDs        string `form:"tag_ids"`
	FavoritesOnly bool   `form:"favorites_only"`
	Sort          string `form:"sort" binding:"omitempty,oneof=title -title -rating rating -created_at created_at release_date -release_date -reviews"`
}

type FavoriteResponse struct {
	IsFavorite bool `json:"is_favorite"`
}

// endregion

// GameHandler serves the game catalog.
type GameHandler struct {
	games *service.GameService
}

func NewGameHandler(games *service.GameService) *GameHandler {
	return &GameHandler{games: games}
}

// region --- Public Handlers ---

// GetGames godoc
// @Summary      Search games
// @Description  Lists games with filters. A search without results returns title suggestions.
// @Tags         games
// @Produce      json
// @Param        q              query     string  false  "Title, developer or publisher"
// @Param        category       query     string  false  "Category slug"
// @Param        tag_ids        query     string  false  "Comma-separated tag IDs, any match"
// @Param        favorites_only query     bool    false  "Only the caller's favorites"
// @Param        sort           query     string  false  "title, -rating, -created_at or release_date"
// @Param        page           query     int     false  "Page number" default(1)
// @Param        limit          query     int     false  "Items per page" default(20)
// @Success      200            {object}  PaginatedGameResponse
// @Failure      400            {object}  ErrorResponse
// @Router       /games [get]
func (h *GameHandler) GetGames(c *gin.Context) {
	var q GameQuery
	if !bindQuery(c, &q) {
		return
	}
	tagIDs, err := parseIDList(q.TagIDs)
	if err != nil {
		abort(c, apperr.Validation("error.invalid_query", map[string]string{"param": "tag_ids"}))
		return
	}

	list, err := h.games.Search(c.Request.Context(), auth.UserID(c), service.GameFilter{
		Query:         q.Q,
		CategorySlug:  q.Category,
		TagIDs:        tagIDs,
		FavoritesOnly: q.FavoritesOnly,
		Sort:          q.Sort,
		Page:          q.Page,
		Limit:         q.Limit,
	})
	if err != nil {
		abort(c, err)
		return
	}

	resp := Paginate(list.Page, func(g models.Game) GameResponse { return newGameResponse(g, list.Favorites) })
	c.JSON(http.StatusOK, PaginatedGameResponse{Data: resp.Data, Meta: resp.Meta, Suggestions: list.Suggestions})
}

// GetGameByID godoc
// @Summary      Get a game
// @Tags         games
// @Produce      json
// @Param        id   path      int  true  "Game ID"
// @Success      200  {object}  GameResponse
// @Failure      404  {object}  ErrorResponse "Game not found"
// @Router       /games/{id} [get]
func (h *GameHandler) GetGameByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	game, fav, err := h.games.Get(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameResponse(*game, map[uint]bool{game.ID: fav}))
}

// ToggleFavoriteGame godoc
// @Summary      Toggle a favorite game
// @Description  Adds the game to the caller's favorites, or removes it if already there.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Game ID"
// @Success      200  {object}  FavoriteResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Game not found"
// @Router       /games/{id}/favorite [post]
func (h *GameHandler) ToggleFavoriteGame(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	on, err := h.games.ToggleFavorite(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, FavoriteResponse{IsFavorite: on})
}

// endregion

// region --- Admin Handlers ---

// CreateGame godoc
// @Summary      Create a new game
// @Description  Creates a new game and associates it with given tags.
// @Tags         admin-games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body GameRequest true "Game Info"
// @Success      201  {object}  GameResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Failure      409  {object}  ErrorResponse
// @Router       /admin/games [post]
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req GameRequest
	if !bindJSON(c, &req) {
		return
	}
	game, err := h.games.Create(c.Request.Context(), actor(c), req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, newGameResponse(*game, nil))
}

// UpdateGame godoc
// @Summary      Update a game
// @Description  Updates a game's details and replaces its tags.
// @Tags         admin-games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int         true  "Game ID"
// @Param        input body      GameRequest true  "New Game Info"
// @Success      200   {object}  GameResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse "Admin access required"
// @Failure      404   {object}  ErrorResponse "Game not found"
// @Router       /admin/games/{id} [put]
func (h *GameHandler) UpdateGame(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req GameRequest
	if !bindJSON(c, &req) {
		return
	}
	game, err := h.games.Update(c.Request.Context(), actor(c), id, req.input())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameResponse(*game, nil))
}

// DeleteGame godoc
// @Summary      Delete a game
// @Tags         admin-games
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Game ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Failure      404  {object}  ErrorResponse "Game not found"
// @Router       /admin/games/{id} [delete]
func (h *GameHandler) DeleteGame(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.games.Delete(c.Request.Context(), actor(c), id); err != nil {
		abort(c, err)
		return
	}
	deleted(c, "game")
}

// endregion
