package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/geocoder89/sitecms/internal/auth"
	"github.com/geocoder89/sitecms/internal/blob"
	"github.com/geocoder89/sitecms/internal/cache"
	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/db"
	apphttp "github.com/geocoder89/sitecms/internal/http"
	"github.com/geocoder89/sitecms/internal/http/handlers"
	"github.com/geocoder89/sitecms/internal/observability"
	"github.com/geocoder89/sitecms/internal/store"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
	// the seeded admin must replace its password before writing
	adminNewPassword = "admin-password-2"
)

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()

	return config.Config{
		Env:            "test",
		DataFile:       filepath.Join(dir, "cms.json"),
		AuthSecret:     "test-secret-key",
		SessionTTL:     auth.DefaultTTL,
		CORSOrigins:    []string{"*"},
		MaxBodyBytes:   1 << 20,
		UploadDir:      filepath.Join(dir, "uploads"),
		MediaBaseURL:   "/media",
		MaxUploadMB:    5,
		AdminEmail:     adminEmail,
		AdminPassword:  adminPassword,
		AdminName:      "Test Admin",
		AdminRole:      "admin",
		LoginRateLimit: 100,
		PublicCacheTTL: time.Minute,
	}
}

type testApp struct {
	router  *gin.Engine
	backend store.Backend
	inv     *handlers.Invalidator
}

func setupApp(t *testing.T, cfg config.Config) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	backend, err := store.OpenJSON(cfg.DataFile, logger)
	if err != nil {
		t.Fatalf("open json store: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	if _, err := db.EnsureAdminUser(context.Background(), backend.Users(), cfg, logger); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	blobs, err := blob.NewLocal(cfg.UploadDir, cfg.MediaBaseURL)
	if err != nil {
		t.Fatalf("local blobs: %v", err)
	}

	prom := observability.NewProm(prometheus.NewRegistry())
	publicCache := cache.New(cfg.PublicCacheTTL)
	inv := handlers.NewInvalidator(publicCache, nil, logger)

	router, err := apphttp.NewRouter(apphttp.Deps{
		Config:      cfg,
		Log:         logger,
		Backend:     store.Instrument(backend, prom),
		Sessions:    auth.NewManager(cfg.AuthSecret, cfg.SessionTTL),
		Blobs:       blobs,
		Cache:       publicCache,
		Invalidator: inv,
		Prom:        prom,
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	return &testApp{router: router, backend: backend, inv: inv}
}

// client keeps the session cookie between calls like a browser would.
type client struct {
	t       *testing.T
	app     *testApp
	session string
}

func (a *testApp) client(t *testing.T) *client {
	return &client{t: t, app: a}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: c.session})
	}

	w := httptest.NewRecorder()
	c.app.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name != auth.CookieName {
			continue
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			c.session = ""
		} else {
			c.session = ck.Value
		}
	}

	c.app.inv.Wait()
	return w
}

// admin returns a signed-in client for the seeded admin, past its first
// password change.
func (a *testApp) admin(t *testing.T) *client {
	t.Helper()

	c := a.client(t)
	expectStatus(t, c.login(adminEmail, adminPassword), http.StatusOK)
	expectStatus(t, c.do(http.MethodPut, "/api/auth/me", map[string]string{"password": adminNewPassword}), http.StatusOK)
	return c
}

func (c *client) raw(method, path, contentType, body string) *httptest.ResponseRecorder {
	c.t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: c.session})
	}

	w := httptest.NewRecorder()
	c.app.router.ServeHTTP(w, req)
	return w
}

func (c *client) login(email, password string) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password})
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %T: %v body=%s", out, err, w.Body.String())
	}
	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, want, w.Body.String())
	}
}

type errorBody struct {
	Error string `json:"error"`
}
