package integration_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/sitecms/internal/domain/content"
)

type userBody struct {
	User *struct {
		ID                 string `json:"id"`
		Email              string `json:"email"`
		Role               string `json:"role"`
		MustChangePassword bool   `json:"mustChangePassword"`
	} `json:"user"`
}

func TestLoginMeLogout(t *testing.T) {
	app := setupApp(t, testConfig(t))
	c := app.client(t)

	w := c.do(http.MethodGet, "/api/auth/me", nil)
	expectStatus(t, w, http.StatusOK)
	if decode[userBody](t, w).User != nil {
		t.Fatalf("expected no user before login")
	}

	w = c.login(adminEmail, "wrong-password")
	expectStatus(t, w, http.StatusUnauthorized)
	if got := decode[errorBody](t, w).Error; got != "Invalid credentials" {
		t.Fatalf("error = %q", got)
	}

	w = c.login(adminEmail, adminPassword)
	expectStatus(t, w, http.StatusOK)
	if c.session == "" {
		t.Fatalf("login did not set a session cookie")
	}
	login := decode[userBody](t, w)
	if login.User == nil || login.User.Role != "admin" || !login.User.MustChangePassword {
		t.Fatalf("unexpected login user: %s", w.Body.String())
	}

	w = c.do(http.MethodGet, "/api/auth/me", nil)
	expectStatus(t, w, http.StatusOK)
	if me := decode[userBody](t, w); me.User == nil || me.User.Email != adminEmail {
		t.Fatalf("unexpected me: %s", w.Body.String())
	}

	w = c.do(http.MethodPut, "/api/auth/me", map[string]string{"password": "a-new-password"})
	expectStatus(t, w, http.StatusOK)
	if me := decode[userBody](t, w); me.User.MustChangePassword {
		t.Fatalf("password change should clear mustChangePassword")
	}

	w = c.do(http.MethodPost, "/api/auth/logout", nil)
	expectStatus(t, w, http.StatusOK)
	if c.session != "" {
		t.Fatalf("logout should clear the cookie")
	}

	w = c.do(http.MethodGet, "/api/auth/me", nil)
	expectStatus(t, w, http.StatusOK)
	if decode[userBody](t, w).User != nil {
		t.Fatalf("expected no user after logout")
	}

	expectStatus(t, c.login(adminEmail, adminPassword), http.StatusUnauthorized)
	expectStatus(t, c.login(strings.ToUpper(adminEmail), "a-new-password"), http.StatusOK)
}

func TestBlogCRUD(t *testing.T) {
	app := setupApp(t, testConfig(t))
	editor := app.admin(t)
	public := app.client(t)

	w := editor.do(http.MethodPost, "/api/blog", map[string]any{"excerpt": "no title"})
	expectStatus(t, w, http.StatusBadRequest)
	if got := decode[errorBody](t, w).Error; got != "title is required" {
		t.Fatalf("error = %q", got)
	}

	w = editor.do(http.MethodPost, "/api/blog", map[string]any{
		"title": "First Post",
		"body":  "Hello",
		"tags":  []string{"news"},
	})
	expectStatus(t, w, http.StatusOK)
	created := decode[map[string]any](t, w)
	id, _ := created["id"].(string)
	if id == "" || created["slug"] != "first-post" {
		t.Fatalf("unexpected create response: %s", w.Body.String())
	}

	w = editor.do(http.MethodPost, "/api/blog", map[string]any{"title": "Other", "slug": "first-post"})
	expectStatus(t, w, http.StatusConflict)

	w = public.do(http.MethodGet, "/api/blog/first-post", nil)
	expectStatus(t, w, http.StatusOK)

	w = public.do(http.MethodGet, "/api/blog", nil)
	expectStatus(t, w, http.StatusOK)
	if items := decode[[]map[string]any](t, w); len(items) != 1 {
		t.Fatalf("expected one post, got %d", len(items))
	}

	w = editor.do(http.MethodPut, "/api/blog/"+id, map[string]any{"slug": "renamed", "excerpt": "now with excerpt"})
	expectStatus(t, w, http.StatusOK)
	updated := decode[map[string]any](t, w)
	if updated["title"] != "First Post" || updated["excerpt"] != "now with excerpt" {
		t.Fatalf("update should merge: %s", w.Body.String())
	}

	// the cached detail under the old slug must be gone
	expectStatus(t, public.do(http.MethodGet, "/api/blog/first-post", nil), http.StatusNotFound)
	expectStatus(t, public.do(http.MethodGet, "/api/blog/renamed", nil), http.StatusOK)

	expectStatus(t, editor.do(http.MethodDelete, "/api/blog/"+id+"/purge", nil), http.StatusConflict)

	expectStatus(t, editor.do(http.MethodDelete, "/api/blog/"+id, nil), http.StatusOK)

	w = public.do(http.MethodGet, "/api/blog/renamed", nil)
	expectStatus(t, w, http.StatusNotFound)
	if got := decode[errorBody](t, w).Error; got != "Blog post not found" {
		t.Fatalf("error = %q", got)
	}

	w = public.do(http.MethodGet, "/api/blog", nil)
	if items := decode[[]map[string]any](t, w); len(items) != 0 {
		t.Fatalf("deleted post still listed")
	}

	w = editor.do(http.MethodPost, "/api/blog/"+id+"/restore", nil)
	expectStatus(t, w, http.StatusOK)
	expectStatus(t, public.do(http.MethodGet, "/api/blog/renamed", nil), http.StatusOK)

	expectStatus(t, editor.do(http.MethodDelete, "/api/blog/"+id, nil), http.StatusOK)
	expectStatus(t, editor.do(http.MethodDelete, "/api/blog/"+id+"/purge", nil), http.StatusOK)
	expectStatus(t, editor.do(http.MethodGet, "/api/blog/"+id, nil), http.StatusNotFound)
}

func TestSoftDeleteIsIdempotent(t *testing.T) {
	app := setupApp(t, testConfig(t))
	c := app.admin(t)

	w := c.do(http.MethodPost, "/api/projects", map[string]any{"title": "Site rebuild", "year": 2024})
	expectStatus(t, w, http.StatusOK)
	id := decode[map[string]any](t, w)["id"].(string)

	expectStatus(t, c.do(http.MethodDelete, "/api/projects/"+id, nil), http.StatusOK)
	first := decode[map[string]any](t, c.do(http.MethodGet, "/api/projects/"+id, nil))["deletedAt"]

	expectStatus(t, c.do(http.MethodDelete, "/api/projects/"+id, nil), http.StatusOK)
	second := decode[map[string]any](t, c.do(http.MethodGet, "/api/projects/"+id, nil))["deletedAt"]

	if first == nil || first != second {
		t.Fatalf("second delete changed deletedAt: %v -> %v", first, second)
	}
}

func TestUnauthenticatedWritesAreRejected(t *testing.T) {
	app := setupApp(t, testConfig(t))

	admin := app.admin(t)
	w := admin.do(http.MethodPost, "/api/blog", map[string]any{"title": "Keep Me", "body": "original"})
	expectStatus(t, w, http.StatusOK)
	existingID := decode[map[string]any](t, w)["id"].(string)
	expectStatus(t, admin.do(http.MethodPut, "/api/settings", map[string]any{"siteName": "Original"}), http.StatusOK)

	before := admin.do(http.MethodGet, "/api/blog/"+existingID, nil).Body.String()

	type call struct {
		method string
		path   string
	}

	var calls []call
	for _, r := range content.Routes() {
		base := "/api/" + r.Segment
		calls = append(calls,
			call{http.MethodPost, base},
			call{http.MethodPut, base + "/some-id"},
			call{http.MethodDelete, base + "/some-id"},
			call{http.MethodPost, base + "/some-id/restore"},
			call{http.MethodDelete, base + "/some-id/purge"},
		)
	}
	calls = append(calls,
		call{http.MethodPut, "/api/blog/" + existingID},
		call{http.MethodDelete, "/api/blog/" + existingID},
		call{http.MethodPost, "/api/blog/" + existingID + "/restore"},
		call{http.MethodDelete, "/api/blog/" + existingID + "/purge"},
	)
	calls = append(calls,
		call{http.MethodPut, "/api/settings"},
		call{http.MethodGet, "/api/uploads"},
		call{http.MethodPost, "/api/uploads"},
		call{http.MethodPut, "/api/uploads"},
		call{http.MethodDelete, "/api/uploads/some-id"},
		call{http.MethodPut, "/api/auth/me"},
		call{http.MethodPost, "/api/auth/register"},
	)

	anonymous := app.client(t)
	forged := app.client(t)
	forged.session = "eyJ1c2VySWQiOiJ4Iiwicm9sZSI6ImFkbWluIiwiZXhwIjo5OTk5OTk5OTk5OTk5fQ.AAAA"

	for _, c := range []*client{anonymous, forged} {
		for _, tc := range calls {
			w := c.do(tc.method, tc.path, map[string]any{"title": "x"})
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("%s %s: status = %d, want 401", tc.method, tc.path, w.Code)
			}
			if got := decode[errorBody](t, w).Error; got != "Unauthorized" {
				t.Fatalf("%s %s: error = %q", tc.method, tc.path, got)
			}
		}
	}

	for _, r := range content.Routes() {
		w := anonymous.do(http.MethodGet, "/api/"+r.Segment, nil)
		expectStatus(t, w, http.StatusOK)
		want := 0
		if r.Kind == content.KindBlog {
			want = 1
		}
		if items := decode[[]map[string]any](t, w); len(items) != want {
			t.Fatalf("%s: rejected write reached storage, %d items", r.Segment, len(items))
		}
	}

	if after := admin.do(http.MethodGet, "/api/blog/"+existingID, nil).Body.String(); after != before {
		t.Fatalf("existing record changed:\nbefore %s\nafter  %s", before, after)
	}
	settings := decode[map[string]any](t, anonymous.do(http.MethodGet, "/api/settings", nil))
	if settings["siteName"] != "Original" || settings["title"] != nil {
		t.Fatalf("settings changed: %v", settings)
	}
}

func TestSeededAdminMustChangePassword(t *testing.T) {
	app := setupApp(t, testConfig(t))
	c := app.client(t)
	expectStatus(t, c.login(adminEmail, adminPassword), http.StatusOK)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/blog"},
		{http.MethodPut, "/api/settings"},
		{http.MethodGet, "/api/uploads"},
		{http.MethodPost, "/api/auth/register"},
	} {
		w := c.do(tc.method, tc.path, map[string]any{"title": "x"})
		expectStatus(t, w, http.StatusForbidden)
		if got := decode[errorBody](t, w).Error; got != "Password change required" {
			t.Fatalf("%s %s: error = %q", tc.method, tc.path, got)
		}
	}

	expectStatus(t, c.do(http.MethodGet, "/api/auth/me", nil), http.StatusOK)
	expectStatus(t, c.do(http.MethodPut, "/api/auth/me", map[string]string{"name": "Renamed"}), http.StatusOK)
	expectStatus(t, c.do(http.MethodPost, "/api/blog", map[string]any{"title": "x"}), http.StatusForbidden)

	expectStatus(t, c.do(http.MethodPut, "/api/auth/me", map[string]string{"password": adminNewPassword}), http.StatusOK)
	expectStatus(t, c.do(http.MethodPost, "/api/blog", map[string]any{"title": "Now Allowed"}), http.StatusOK)
	expectStatus(t, c.do(http.MethodPut, "/api/settings", map[string]any{"siteName": "Mine"}), http.StatusOK)

	// a fresh login keeps the cleared flag
	again := app.client(t)
	w := again.login(adminEmail, adminNewPassword)
	expectStatus(t, w, http.StatusOK)
	if decode[userBody](t, w).User.MustChangePassword {
		t.Fatalf("flag should stay cleared")
	}
	expectStatus(t, again.do(http.MethodPost, "/api/blog", map[string]any{"title": "Second"}), http.StatusOK)
}

func TestContentTypeCheckedAfterRoutingAndAuth(t *testing.T) {
	app := setupApp(t, testConfig(t))
	anonymous := app.client(t)

	w := anonymous.raw(http.MethodPost, "/api/nope", "text/plain", "hello")
	expectStatus(t, w, http.StatusNotFound)
	if got := decode[errorBody](t, w).Error; got != "Route /nope not found" {
		t.Fatalf("error = %q", got)
	}

	w = anonymous.raw(http.MethodPost, "/api/blog", "text/plain", "hello")
	expectStatus(t, w, http.StatusUnauthorized)

	admin := app.admin(t)
	w = admin.raw(http.MethodPost, "/api/blog", "text/plain", "hello")
	expectStatus(t, w, http.StatusUnsupportedMediaType)
	if got := decode[errorBody](t, w).Error; got != "Content-Type must be application/json" {
		t.Fatalf("error = %q", got)
	}
}

func TestEditorCannotPurgeOrRegister(t *testing.T) {
	app := setupApp(t, testConfig(t))

	admin := app.admin(t)

	w := admin.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "editor@example.com",
		"password": "editor-password",
		"name":     "Ed",
	})
	expectStatus(t, w, http.StatusCreated)

	editor := app.client(t)
	expectStatus(t, editor.login("editor@example.com", "editor-password"), http.StatusOK)

	w = editor.do(http.MethodPost, "/api/pages", map[string]any{"title": "About"})
	expectStatus(t, w, http.StatusOK)
	id := decode[map[string]any](t, w)["id"].(string)
	expectStatus(t, editor.do(http.MethodDelete, "/api/pages/"+id, nil), http.StatusOK)

	w = editor.do(http.MethodDelete, "/api/pages/"+id+"/purge", nil)
	expectStatus(t, w, http.StatusForbidden)
	if got := decode[errorBody](t, w).Error; got != "Forbidden" {
		t.Fatalf("error = %q", got)
	}

	expectStatus(t, editor.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "x@example.com", "password": "long-enough", "name": "X",
	}), http.StatusForbidden)
}

func TestCapabilitiesAliasesServices(t *testing.T) {
	app := setupApp(t, testConfig(t))
	c := app.admin(t)

	expectStatus(t, c.do(http.MethodPost, "/api/services", map[string]any{"title": "Design"}), http.StatusOK)

	public := app.client(t)
	w := public.do(http.MethodGet, "/api/capabilities/design", nil)
	expectStatus(t, w, http.StatusOK)
}

func TestDispatchEdges(t *testing.T) {
	app := setupApp(t, testConfig(t))
	c := app.client(t)

	w := c.do(http.MethodGet, "/api/nope", nil)
	expectStatus(t, w, http.StatusNotFound)
	if got := decode[errorBody](t, w).Error; got != "Route /nope not found" {
		t.Fatalf("error = %q", got)
	}

	w = c.do(http.MethodGet, "/api/blog/", nil)
	expectStatus(t, w, http.StatusOK)

	req := httptest.NewRequest(http.MethodOptions, "/api/blog", nil)
	req.Header.Set("Origin", "https://site.example")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.Len() != 0 {
		t.Fatalf("OPTIONS body should be empty, got %q", rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header: %v", rec.Header())
	}

	w = c.do(http.MethodGet, "/api/settings", nil)
	expectStatus(t, w, http.StatusOK)
	if strings.TrimSpace(w.Body.String()) != "{}" {
		t.Fatalf("empty settings = %s", w.Body.String())
	}

	expectStatus(t, c.do(http.MethodGet, "/healthz", nil), http.StatusOK)
	expectStatus(t, c.do(http.MethodGet, "/readyz", nil), http.StatusOK)
	expectStatus(t, c.do(http.MethodGet, "/metrics", nil), http.StatusOK)
}

func TestLoginIsRateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.LoginRateLimit = 2
	app := setupApp(t, cfg)
	c := app.client(t)

	expectStatus(t, c.login(adminEmail, "bad"), http.StatusUnauthorized)
	expectStatus(t, c.login(adminEmail, "bad"), http.StatusUnauthorized)

	w := c.login(adminEmail, adminPassword)
	expectStatus(t, w, http.StatusTooManyRequests)
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
}

func TestOversizedBodyIsRejected(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxBodyBytes = 1 << 10
	app := setupApp(t, cfg)
	admin := app.admin(t)

	w := admin.do(http.MethodPost, "/api/blog", map[string]any{"title": "Big", "body": strings.Repeat("x", 4<<10)})
	expectStatus(t, w, http.StatusRequestEntityTooLarge)
	if body := strings.TrimSpace(w.Body.String()); body != `{"error":"Request body too large"}` {
		t.Fatalf("body = %s", body)
	}

	w = admin.do(http.MethodPut, "/api/auth/me", map[string]string{"name": strings.Repeat("n", 4<<10)})
	expectStatus(t, w, http.StatusRequestEntityTooLarge)
}
