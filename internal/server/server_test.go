package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"galaxydistance/internal/config"
	"galaxydistance/internal/middleware"
	"galaxydistance/internal/models"
	"galaxydistance/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	mr     *miniredis.Miniredis
	srv    *Server
	app    *fiber.App
	images *testutil.ImageStoreStub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	rdb, mr := testutil.NewTestRedis(t)
	cfg := &config.Config{
		Env:             "test",
		SessionTTL:      7 * 24 * time.Hour,
		GuestSessionTTL: 20 * time.Minute,
		ViewedMax:       10,
		ViewedPageSize:  4,
	}
	images := testutil.NewImageStoreStub()
	srv, err := NewServerWithDeps(cfg, db, rdb, images)
	require.NoError(t, err)
	srv.userService.WithHashCost(bcrypt.MinCost)

	return &testEnv{t: t, db: db, mr: mr, srv: srv, app: srv.NewApp(), images: images}
}

func (e *testEnv) do(method, path string, body interface{}, cookies ...*http.Cookie) *http.Response {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	return resp
}

// loginAs opens a session for user directly in the store.
func (e *testEnv) loginAs(user *models.User) *http.Cookie {
	e.t.Helper()
	token, err := e.srv.sessions.Create(context.Background(), user.ID)
	require.NoError(e.t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst), string(raw))
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])

	env.mr.Close()
	resp = env.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestSwaggerDoc(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/api/swagger/doc.json", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var doc struct {
		BasePath string                            `json:"basePath"`
		Paths    map[string]map[string]interface{} `json:"paths"`
	}
	decode(t, resp, &doc)
	assert.Equal(t, "/api", doc.BasePath)
	assert.Contains(t, doc.Paths["/galaxies/{id}/draft"], "post")
	assert.Contains(t, doc.Paths["/galaxy-requests/{id}/resolve"], "put")
	assert.Contains(t, doc.Paths["/galaxy-requests/draft/submit"], "put")
}

func TestGuestCookie(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/api/galaxies", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	guest := findCookie(resp, middleware.GuestCookie)
	require.NotNil(t, guest)
	assert.NotEmpty(t, guest.Value)
	assert.True(t, guest.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, guest.SameSite)
	assert.Equal(t, 1200, guest.MaxAge)
	assert.Equal(t, "/", guest.Path)

	resp = env.do(http.MethodGet, "/api/galaxies", nil, guest)
	again := findCookie(resp, middleware.GuestCookie)
	require.NotNil(t, again)
	assert.Equal(t, guest.Value, again.Value, "live guest token is kept")

	stale := &http.Cookie{Name: middleware.GuestCookie, Value: "not-a-live-token"}
	resp = env.do(http.MethodGet, "/api/galaxies", nil, stale)
	fresh := findCookie(resp, middleware.GuestCookie)
	require.NotNil(t, fresh)
	assert.NotEqual(t, stale.Value, fresh.Value)
	assert.NotEqual(t, guest.Value, fresh.Value)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/users/register", map[string]string{
		"username": "hubble",
		"email":    "edwin@example.com",
		"password": "Redshift1929",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/users/register", map[string]string{
		"username": "hubble",
		"email":    "other@example.com",
		"password": "Redshift1929",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/users/login", map[string]string{"username": "hubble", "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = env.do(http.MethodPost, "/api/users/login", map[string]string{"username": "hubble", "password": "Redshift1929"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	sessionCookie := findCookie(resp, middleware.SessionCookie)
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), sessionCookie.MaxAge)

	resp = env.do(http.MethodGet, "/api/users/profile", nil, sessionCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var profile userResponse
	decode(t, resp, &profile)
	assert.Equal(t, "hubble", profile.Username)
	assert.Equal(t, models.RoleRegular, profile.Role)

	// Guest-only routes refuse a signed-in caller.
	resp = env.do(http.MethodPost, "/api/users/login", map[string]string{"username": "hubble", "password": "Redshift1929"}, sessionCookie)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.do(http.MethodPut, "/api/users/profile", map[string]string{"first_name": "Edwin"}, sessionCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &profile)
	assert.Equal(t, "Edwin", profile.FirstName)

	resp = env.do(http.MethodPost, "/api/users/logout", nil, sessionCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cleared := findCookie(resp, middleware.SessionCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	resp = env.do(http.MethodGet, "/api/users/profile", nil, sessionCookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Logging out twice is harmless once the session is gone: the caller is anonymous.
	resp = env.do(http.MethodPost, "/api/users/logout", nil, sessionCookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionSlidingTTL(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "leavitt", models.RoleRegular)
	cookie := env.loginAs(user)

	env.mr.FastForward(6 * 24 * time.Hour)
	resp := env.do(http.MethodGet, "/api/users/profile", nil, cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 7*24*time.Hour, env.mr.TTL("session:"+cookie.Value))

	env.mr.FastForward(7*24*time.Hour + time.Second)
	resp = env.do(http.MethodGet, "/api/users/profile", nil, cookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionStoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "shapley", models.RoleRegular)
	cookie := env.loginAs(user)
	testutil.CreateGalaxy(t, env.db, "Andromeda")

	env.mr.Close()

	resp := env.do(http.MethodGet, "/api/users/profile", nil, cookie)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, models.CodeDependencyFailure, body.Code)

	// Anonymous catalog browsing survives without a guest session.
	resp = env.do(http.MethodGet, "/api/galaxies", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Nil(t, findCookie(resp, middleware.GuestCookie))
}

func TestDeletedUserFailsOpen(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "zwicky", models.RoleRegular)
	cookie := env.loginAs(user)
	require.NoError(t, env.db.Delete(&models.User{}, user.ID).Error)

	resp := env.do(http.MethodGet, "/api/galaxies", nil, cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, env.mr.Exists("session:"+cookie.Value), "orphaned session is revoked")
}

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"galaxyId", "galaxy ID"},
		{"requestItemId", "request item ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Nil(t, formatTime(nil))
	assert.Nil(t, formatTime(&time.Time{}))

	at := time.Date(2025, 3, 7, 9, 5, 0, 0, time.FixedZone("MSK", 3*3600))
	got := formatTime(&at)
	require.NotNil(t, got)
	assert.Equal(t, "07.03.2025 06:05", *got)
}

func multipartImage(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "galaxy.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}
