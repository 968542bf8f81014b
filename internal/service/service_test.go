package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/cache"
	"gamehub/backend/internal/hub"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/repository"
	"gamehub/backend/internal/storage"
	"gamehub/backend/internal/testutil"
	"gamehub/backend/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// recordingPublisher captures published events per user.
type recordingPublisher struct {
	mu     sync.Mutex
	events map[uint][][]byte
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[uint][][]byte{}
	}
	p.events[userID] = append(p.events[userID], payload)
	return nil
}

func (p *recordingPublisher) count(userID uint) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[userID])
}

// last decodes the newest notification published to userID.
func (p *recordingPublisher) last(t *testing.T, userID uint) NotificationEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	events := p.events[userID]
	require.NotEmpty(t, events)
	event, err := hub.Decode(events[len(events)-1])
	require.NoError(t, err)
	require.Equal(t, hub.EventNotification, event.Type)
	var n NotificationEvent
	require.NoError(t, json.Unmarshal(event.Payload, &n))
	return n
}

type testEnv struct {
	db        *gorm.DB
	svc       *Services
	store     repository.NotificationStore
	publisher *recordingPublisher
	redis     *miniredis.Miniredis
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnvWithCache(t, nil)
}

// newCachedEnv backs the service cache with an in-process Redis.
func newCachedEnv(t *testing.T) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newEnvWithCache(t, cache.New(rdb, zaptest.NewLogger(t)))
	env.redis = mr
	return env
}

func newEnvWithCache(t *testing.T, c *cache.Cache) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewMemoryNotificationStore()
	publisher := &recordingPublisher{}
	local, err := storage.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	svc := New(Deps{
		DB:            db,
		Cache:         c,
		Tokens:        jwt.NewManager("test-secret", "gamehub-test", 15*time.Minute),
		Notifications: store,
		Publisher:     publisher,
		Storage:       local,
		Auth: AuthOptions{
			RefreshTTL: time.Hour,
			TOTPIssuer: "GameHub",
			BcryptCost: bcrypt.MinCost,
		},
		MaxUploadBytes:  1 << 20,
		SupportedLocale: func(l string) bool { return l == "en" || l == "es" || l == "fr" },
		Log:             zaptest.NewLogger(t),
	})
	return &testEnv{db: db, svc: svc, store: store, publisher: publisher}
}

func (e *testEnv) user(t *testing.T, name string, role models.Role) Actor {
	t.Helper()
	u := &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Locale:       "en",
	}
	require.NoError(t, e.db.Create(u).Error)
	return Actor{ID: u.ID, Role: role}
}

func (e *testEnv) game(t *testing.T, title string) *models.Game {
	t.Helper()
	g := &models.Game{Title: title, Slug: fmt.Sprintf("game-%d", time.Now().UnixNano())}
	require.NoError(t, e.db.Create(g).Error)
	return g
}

func (e *testEnv) post(t *testing.T, author Actor, status models.PostStatus) *models.Post {
	t.Helper()
	p, err := e.svc.Posts.Create(context.Background(), author, PostInput{
		Title:   "Patch notes",
		Content: "<p>Balance changes</p>",
		Status:  status,
	})
	require.NoError(t, err)
	return p
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, kind), "expected %s, got %v", kind, err)
}

func TestCRUDService_Authorize(t *testing.T) {
	svc := NewCRUDService[models.Post](nil, func(p *models.Post) uint { return p.AuthorID })
	post := &models.Post{AuthorID: 1}

	assert.NoError(t, svc.Authorize(Actor{ID: 1, Role: models.RoleUser}, post))
	assert.NoError(t, svc.Authorize(Actor{ID: 2, Role: models.RoleModerator}, post))
	assertKind(t, svc.Authorize(Actor{ID: 2, Role: models.RoleUser}, post), apperr.KindForbidden)
	assertKind(t, svc.Authorize(Actor{}, post), apperr.KindUnauthorized)

	staffOnly := NewCRUDService[models.Tag](nil, nil)
	assertKind(t, staffOnly.Authorize(Actor{ID: 1, Role: models.RoleUser}, &models.Tag{}), apperr.KindForbidden)
	assert.NoError(t, staffOnly.Authorize(Actor{ID: 1, Role: models.RoleAdmin}, &models.Tag{}))
}

func TestCRUDService_DeleteMany(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice", models.RoleUser)
	bob := env.user(t, "bob", models.RoleUser)

	a1 := env.post(t, alice, models.PostPublished)
	a2 := env.post(t, alice, models.PostDraft)
	b1 := env.post(t, bob, models.PostPublished)

	t.Run("foreign id rolls back the batch", func(t *testing.T) {
		_, err := env.svc.Posts.DeleteMany(ctx, alice, []uint{a1.ID, b1.ID})
		assertKind(t, err, apperr.KindForbidden)

		_, err = env.svc.Posts.Get(ctx, a1.ID)
		assert.NoError(t, err)
	})

	t.Run("missing id rolls back the batch", func(t *testing.T) {
		_, err := env.svc.Posts.DeleteMany(ctx, alice, []uint{a1.ID, 9999})
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("owned ids are deleted", func(t *testing.T) {
		n, err := env.svc.Posts.DeleteMany(ctx, alice, []uint{a1.ID, a2.ID, a1.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("staff may delete anything", func(t *testing.T) {
		mod := env.user(t, "mod", models.RoleModerator)
		n, err := env.svc.Posts.DeleteMany(ctx, mod, []uint{b1.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
