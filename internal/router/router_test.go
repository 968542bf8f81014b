package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gamehub/backend/internal/apperr"
	"gamehub/backend/internal/config"
	"gamehub/backend/internal/hub"
	"gamehub/backend/internal/i18n"
	"gamehub/backend/internal/models"
	"gamehub/backend/internal/service"
	"gamehub/backend/internal/storage"
	"gamehub/backend/internal/testutil"
	"gamehub/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	hub    *hub.Hub
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	log := zaptest.NewLogger(t)
	bundle, err := i18n.New("en")
	require.NoError(t, err)
	tokens := jwt.NewManager("router-test-secret", "gamehub-test", 15*time.Minute)
	uploads := t.TempDir()
	local, err := storage.NewLocal(uploads, "/media")
	require.NoError(t, err)
	h := hub.NewHub()

	svc := service.New(service.Deps{
		DB:              db,
		Tokens:          tokens,
		Publisher:       h,
		Storage:         local,
		Auth:            service.AuthOptions{RefreshTTL: time.Hour, TOTPIssuer: "GameHub", BcryptCost: bcrypt.MinCost},
		MaxUploadBytes:  1 << 20,
		SupportedLocale: bundle.Supported,
		Log:             log,
	})

	engine, err := New(Deps{
		Config:   &config.Config{Env: "test", UploadDir: uploads, UploadBaseURL: "/media", AllowedOrigins: "http://localhost:3000"},
		Log:      log,
		Services: svc,
		Bundle:   bundle,
		Tokens:   tokens,
		Hub:      h,
		DB:       db,
	})
	require.NoError(t, err)
	return &testServer{engine: engine, db: db, hub: h}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// register creates an account through the API and returns its access token.
func (s *testServer) register(t *testing.T, username string) (string, uint) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		User   struct{ ID uint } `json:"user"`
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Tokens.AccessToken, out.User.ID
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperr.Response {
	t.Helper()
	var body apperr.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/ping", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/live", "", nil).Code)

	w := s.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ready struct {
		Ready  bool              `json:"ready"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.True(t, ready.Ready)
	assert.Equal(t, "up", ready.Checks["postgres"])
	assert.Equal(t, "unavailable", ready.Checks["redis"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "", nil).Code)
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "alice")

	w := s.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"alice@example.com"`)

	w = s.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(apperr.KindUnauthorized), decodeError(t, w).Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "bruno", "email": "bruno@example.com", "password": "password123", "locale": "xx",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperr.KindValidation), decodeError(t, w).Code)

	w = s.do(t, http.MethodGet, "/api/v1/auth/sessions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"current":true`)
}

func TestValidationErrorsAreLocalized(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/register?lang=es", "", map[string]string{
		"username": "a!", "email": "not-an-email", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "es", w.Header().Get("Content-Language"))
	body := decodeError(t, w)
	assert.Equal(t, string(apperr.KindValidation), body.Code)
	fields := map[string]bool{}
	for _, f := range body.Fields {
		fields[f.Field] = true
		assert.NotEmpty(t, f.Message)
	}
	assert.True(t, fields["username"])
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])

	w = s.do(t, http.MethodGet, "/api/v1/games/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/games/42", "", nil, "Accept-Language", "fr-FR,fr;q=0.9")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "fr", w.Header().Get("Content-Language"))
}

func TestRoleChecks(t *testing.T) {
	s := newServer(t)
	token, userID := s.register(t, "alice")
	game := map[string]any{"title": "Celeste"}

	w := s.do(t, http.MethodPost, "/api/v1/admin/games", token, game)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The role is reloaded on every admin request, so a promotion applies to the existing token.
	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", userID).Update("role", models.RoleAdmin).Error)
	w = s.do(t, http.MethodPost, "/api/v1/admin/games", token, game)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"slug":"celeste"`)

	w = s.do(t, http.MethodGet, "/api/v1/games?q=celest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_items":1`)
}

func TestPostsAndNotifications(t *testing.T) {
	s := newServer(t)
	alice, _ := s.register(t, "alice")
	bob, bobID := s.register(t, "bob")

	w := s.do(t, http.MethodPost, "/api/v1/posts", bob, map[string]any{
		"title": "Speedrun tips", "content": "<p>Go fast</p><script>x</script>", "status": "published",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post struct {
		ID      uint   `json:"id"`
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	assert.NotContains(t, post.Content, "script")

	path := "/api/v1/posts/" + uintPath(post.ID)
	w = s.do(t, http.MethodPost, path+"/like", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"liked":true,"likes_count":1}`, w.Body.String())

	w = s.do(t, http.MethodPost, path+"/comments", alice, map[string]any{"content": "Nice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/notifications?lang=en", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `alice liked \"Speedrun tips\"`)

	w = s.do(t, http.MethodPost, "/api/v1/users/"+uintPath(bobID)+"/block", alice, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// sseLines streams the lines of body until it closes.
func sseLines(body io.Reader) <-chan string {
	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// nextEvent returns the data line of the next SSE event named name.
func nextEvent(t *testing.T, lines <-chan string, name string) string {
	t.Helper()
	timeout := time.After(5 * time.Second)
	matched := false
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed before %q", name)
			switch {
			case line == "event:"+name:
				matched = true
			case matched && strings.HasPrefix(line, "data:"):
				return strings.TrimPrefix(line, "data:")
			}
		case <-timeout:
			t.Fatalf("no %q event", name)
		}
	}
}

func TestNotificationStream(t *testing.T) {
	s := newServer(t)
	alice, aliceID := s.register(t, "alice")
	bob, _ := s.register(t, "bob")

	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/notifications/stream?lang=es", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+alice)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := sseLines(resp.Body)
	assert.JSONEq(t, `{"streams":1}`, nextEvent(t, lines, "ready"))
	assert.Equal(t, 1, s.hub.Connected(aliceID))

	w := s.do(t, http.MethodPost, "/api/v1/users/"+uintPath(aliceID)+"/follow", bob, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var event struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, lines, "notification")), &event))
	assert.Equal(t, string(models.NotificationFollow), event.Type)
	assert.Equal(t, "bob empezó a seguirte", event.Message)

	cancel()
	assert.Eventually(t, func() bool { return s.hub.Connected(aliceID) == 0 },
		5*time.Second, 10*time.Millisecond, "disconnect unsubscribes the stream")
}

func TestModerationFlow(t *testing.T) {
	s := newServer(t)
	alice, _ := s.register(t, "alice")
	bob, _ := s.register(t, "bob")
	mod, modID := s.register(t, "mod")
	require.NoError(t, s.db.Model(&models.User{}).Where("id = ?", modID).Update("role", models.RoleModerator).Error)

	w := s.do(t, http.MethodPost, "/api/v1/posts", bob, map[string]any{
		"title": "Free skins", "content": "click here", "status": "published",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post struct{ ID uint }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	w = s.do(t, http.MethodPost, "/api/v1/reports", alice, map[string]any{
		"target_type": "post", "target_id": post.ID, "reason": "spam",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var report struct{ ID uint }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/moderation/reports", alice, nil).Code)

	w = s.do(t, http.MethodGet, "/api/v1/moderation/reports?status=open", mod, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_items":1`)

	w = s.do(t, http.MethodPost, "/api/v1/moderation/reports/"+uintPath(report.ID)+"/resolve", mod, map[string]any{
		"status": "resolved", "resolution": "spam removed", "remove_content": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"resolved"`)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/posts/"+uintPath(post.ID), "", nil).Code)

	w = s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())
}

func TestUploads(t *testing.T) {
	s := newServer(t)
	token, _ := s.register(t, "alice")
	other, _ := s.register(t, "bob")

	upload := func(name string, content []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		return w
	}

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	w := upload("avatar.png", png)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID          uint   `json:"id"`
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "image/png", created.ContentType)

	w = s.do(t, http.MethodGet, created.URL, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, png, w.Body.Bytes())

	w = upload("notes.txt", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := "/api/v1/uploads/" + uintPath(created.ID)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, path, other, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, path, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, token, nil).Code)
}

func uintPath(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
