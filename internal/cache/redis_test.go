package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, zaptest.NewLogger(t)), mr
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestAside(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (payload, error) {
		calls++
		return payload{Name: "doom", Count: calls}, nil
	}

	first, err := Aside(ctx, c, "k", time.Minute, fetch)
	require.NoError(t, err)
	second, err := Aside(ctx, c, "k", time.Minute, fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("k"))

	mr.FastForward(2 * time.Minute)
	third, err := Aside(ctx, c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Count, "expired entries are refetched")
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("boom")

	_, err := Aside(context.Background(), c, "k", time.Minute, func(context.Context) (payload, error) {
		return payload{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestAside_DisabledCache(t *testing.T) {
	var c *Cache
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Aside(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	c.Invalidate(context.Background(), "k")
	assert.NoError(t, c.Ping(context.Background()))
}

func TestAside_RedisDownFallsThrough(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	v, err := Aside(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(GameKey(1), "x"))
	require.NoError(t, mr.Set(CategoriesKey, "y"))

	c.Invalidate(context.Background(), GameKey(1), CategoriesKey)
	assert.False(t, mr.Exists(GameKey(1)))
	assert.False(t, mr.Exists(CategoriesKey))
}

func TestBlacklist(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Blacklist(ctx, "jti-1", time.Now().Add(time.Minute)))
	assert.True(t, c.IsBlacklisted(ctx, "jti-1"))
	assert.False(t, c.IsBlacklisted(ctx, "jti-2"))

	require.NoError(t, c.Blacklist(ctx, "jti-old", time.Now().Add(-time.Minute)))
	assert.False(t, c.IsBlacklisted(ctx, "jti-old"), "already expired tokens are not stored")

	mr.FastForward(2 * time.Minute)
	assert.False(t, c.IsBlacklisted(ctx, "jti-1"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "game:12", GameKey(12))
	assert.Equal(t, "jwt:blacklist:abc", BlacklistKey("abc"))
}
