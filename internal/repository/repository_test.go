package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCategories(t *testing.T, repo *Repository[models.Category], names ...string) []models.Category {
	t.Helper()
	out := make([]models.Category, 0, len(names))
	for i, name := range names {
		c := models.Category{Name: name, Slug: fmt.Sprintf("cat-%d", i)}
		require.NoError(t, repo.Create(context.Background(), &c))
		out = append(out, c)
	}
	return out
}

func TestRepository_FindByID(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	created := seedCategories(t, repo, "Strategy")[0]

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Strategy", found.Name)

	_, err = repo.FindByID(ctx, 999)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRepository_CreateConflict(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCategoryRepository(db)

	seedCategories(t, repo, "Strategy")
	err := repo.Create(context.Background(), &models.Category{Name: "Strategy", Slug: "other"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestRepository_List(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()
	seedCategories(t, repo, "Racing", "Action", "Strategy", "Adventure", "Puzzle")

	t.Run("default sort and pagination", func(t *testing.T) {
		page, err := repo.List(ctx, ListOptions{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "Action", page.Items[0].Name)
		assert.Equal(t, "Adventure", page.Items[1].Name)

		page, err = repo.List(ctx, ListOptions{Page: 3, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "Strategy", page.Items[0].Name)
	})

	t.Run("descending sort", func(t *testing.T) {
		page, err := repo.List(ctx, ListOptions{Sort: "-name"})
		require.NoError(t, err)
		assert.Equal(t, "Strategy", page.Items[0].Name)
	})

	t.Run("unknown sort falls back to default", func(t *testing.T) {
		page, err := repo.List(ctx, ListOptions{Sort: "password; DROP TABLE users"})
		require.NoError(t, err)
		assert.Equal(t, "Action", page.Items[0].Name)
	})

	t.Run("case insensitive search", func(t *testing.T) {
		page, err := repo.List(ctx, ListOptions{Search: "AD"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		assert.Equal(t, "Adventure", page.Items[0].Name)
	})

	t.Run("like wildcards are literal", func(t *testing.T) {
		page, err := repo.List(ctx, ListOptions{Search: "%"})
		require.NoError(t, err)
		assert.Zero(t, page.Total)
		assert.Empty(t, page.Items)
	})

	t.Run("unknown filter is rejected", func(t *testing.T) {
		_, err := repo.List(ctx, ListOptions{Filters: map[string]any{"secret": 1}})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("limit is clamped", func(t *testing.T) {
		page, err := repo.List(ctx, ListOptions{Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, MaxLimit, page.Limit)
	})
}

func TestRepository_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewReportRepository(db)
	ctx := context.Background()

	user := models.User{Username: "reporter", Email: "r@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	for i, status := range []models.ReportStatus{models.ReportOpen, models.ReportOpen, models.ReportResolved} {
		require.NoError(t, repo.Create(ctx, &models.Report{
			ReporterID: user.ID, TargetType: models.ReportTargetPost, TargetID: uint(i + 1),
			Reason: "spam", Status: status,
		}))
	}

	page, err := repo.List(ctx, ListOptions{Filters: map[string]any{"status": models.ReportOpen}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = repo.List(ctx, ListOptions{Filters: map[string]any{
		"status": []models.ReportStatus{models.ReportOpen, models.ReportResolved},
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
}

func TestRepository_UpdateColumns(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGameRepository(db)
	ctx := context.Background()

	game := &models.Game{Title: "Doom", Slug: "doom", Description: "Rip and tear"}
	require.NoError(t, repo.Create(ctx, game))
	stale, err := repo.FindByID(ctx, game.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(game).Update("review_count", 7).Error)

	stale.Title = "Doom Eternal"
	stale.Description = ""
	require.NoError(t, repo.UpdateColumns(ctx, stale, "title", "description"))

	var stored models.Game
	require.NoError(t, db.First(&stored, game.ID).Error)
	assert.Equal(t, "Doom Eternal", stored.Title)
	assert.Empty(t, stored.Description, "zero values are written")
	assert.Equal(t, 7, stored.ReviewCount, "unlisted columns keep their stored value")
}

func TestRepository_Delete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()
	cats := seedCategories(t, repo, "A", "B", "C")

	require.NoError(t, repo.Delete(ctx, cats[0].ID))
	err := repo.Delete(ctx, cats[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "second delete finds nothing")

	n, err := repo.DeleteIDs(ctx, []uint{cats[1].ID, cats[2].ID, 999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := repo.Count(ctx, func(db *gorm.DB) *gorm.DB { return db })
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTransaction_RollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := Transaction(ctx, db, func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).Create(ctx, &models.Category{Name: "Ghost", Slug: "ghost"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := repo.Exists(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("slug = ?", "ghost") })
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, DefaultLimit},
		{-3, 5, 1, 5},
		{2, 101, 2, MaxLimit},
	}
	for _, tt := range tests {
		page, limit := NormalizePage(tt.page, tt.limit)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantLimit, limit)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key" (SQLSTATE 23505)`)))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: tags.name")))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.False(t, IsUniqueViolation(nil))
}
