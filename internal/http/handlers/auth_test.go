package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geocoder89/sitecms/internal/auth"
	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/domain/user"
	"github.com/geocoder89/sitecms/internal/http/handlers"
	"github.com/geocoder89/sitecms/internal/security"
)

type fakeUserRepo struct {
	byID    map[string]user.User
	updates []user.Profile
}

func newFakeUserRepo(t *testing.T, password string) *fakeUserRepo {
	t.Helper()

	salt, hash, err := security.HashPassword(password)
	require.NoError(t, err)

	u := user.User{
		ID:           "u-1",
		Email:        "admin@example.com",
		Name:         "Admin",
		PasswordSalt: salt,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
	}
	return &fakeUserRepo{byID: map[string]user.User{u.ID: u}}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	for _, u := range f.byID {
		if u.Email == user.NormalizeEmail(email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return user.User{}, user.ErrEmailTaken
		}
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id string, p user.Profile) (user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	f.updates = append(f.updates, p)
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordSalt, u.PasswordHash = *p.PasswordSalt, *p.PasswordHash
		u.MustChangePassword = false
	}
	f.byID[id] = u
	return u, nil
}

func (f *fakeUserRepo) HasAdmin(ctx context.Context) (bool, error) {
	return len(f.byID) > 0, nil
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo(t, "correct-horse")
	sessions := auth.NewManager("test-secret", time.Hour)
	h := handlers.NewAuthHandler(repo, sessions, config.Config{Env: "dev"})
	r := setupRouter(http.MethodPost, "/auth/login", h.Login, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
		wantCookie bool
	}{
		{name: "success", body: `{"email":"ADMIN@example.com ","password":"correct-horse"}`, wantStatus: http.StatusOK, wantCookie: true},
		{name: "wrong_password", body: `{"email":"admin@example.com","password":"nope"}`, wantStatus: http.StatusUnauthorized, wantError: "Invalid credentials"},
		{name: "unknown_email", body: `{"email":"who@example.com","password":"nope"}`, wantStatus: http.StatusUnauthorized, wantError: "Invalid credentials"},
		{name: "missing_password", body: `{"email":"admin@example.com"}`, wantStatus: http.StatusBadRequest, wantError: "email and password required"},
		{name: "not_json", body: `nope`, wantStatus: http.StatusBadRequest, wantError: "email and password required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/auth/login", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.wantError != "" {
				require.Equal(t, tt.wantError, decodeError(t, w).Error)
			}

			c := sessionCookie(w)
			if !tt.wantCookie {
				require.Nil(t, c)
				return
			}

			require.NotNil(t, c)
			require.True(t, c.HttpOnly)
			require.Equal(t, "/", c.Path)
			require.Equal(t, int(time.Hour.Seconds()), c.MaxAge)

			claims, err := sessions.Verify(c.Value)
			require.NoError(t, err)
			require.Equal(t, "u-1", claims.UserID)
			require.True(t, claims.IsAdmin())

			var resp struct {
				OK   bool        `json:"ok"`
				User user.Public `json:"user"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.True(t, resp.OK)
			require.Equal(t, "admin@example.com", resp.User.Email)
			require.NotContains(t, w.Body.String(), "passwordHash")
		})
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	h := handlers.NewAuthHandler(newFakeUserRepo(t, "pw-123456"), auth.NewManager("s", time.Hour), config.Config{})
	r := setupRouter(http.MethodPost, "/auth/logout", h.Logout, nil)

	w := doJSON(r, http.MethodPost, "/auth/logout", "")

	require.Equal(t, http.StatusOK, w.Code)
	c := sessionCookie(w)
	require.NotNil(t, c)
	require.Empty(t, c.Value)
	require.Less(t, c.MaxAge, 0)
}

func TestMe(t *testing.T) {
	h := handlers.NewAuthHandler(newFakeUserRepo(t, "pw-123456"), auth.NewManager("s", time.Hour), config.Config{})

	anon := setupRouter(http.MethodGet, "/auth/me", h.Me, nil)
	w := doJSON(anon, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user":null}`, w.Body.String())

	ghost := setupRouter(http.MethodGet, "/auth/me", h.Me, &auth.Claims{UserID: "deleted", Role: "editor"})
	w = doJSON(ghost, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user":null}`, w.Body.String())

	signed := setupRouter(http.MethodGet, "/auth/me", h.Me, &auth.Claims{UserID: "u-1", Email: "admin@example.com", Role: "admin"})
	w = doJSON(signed, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"email":"admin@example.com"`)
}

func TestUpdateMe(t *testing.T) {
	repo := newFakeUserRepo(t, "old-password")
	sessions := auth.NewManager("s", time.Hour)
	h := handlers.NewAuthHandler(repo, sessions, config.Config{})
	claims := &auth.Claims{UserID: "u-1", Email: "admin@example.com", Role: "admin"}
	r := setupRouter(http.MethodPut, "/auth/me", h.UpdateMe, claims)

	w := doJSON(r, http.MethodPut, "/auth/me", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Nothing to update", decodeError(t, w).Error)

	w = doJSON(r, http.MethodPut, "/auth/me", `{"password":"short"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "password", decodeError(t, w).Fields[0].Field)

	w = doJSON(r, http.MethodPut, "/auth/me", `{"password":"new-password-1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Nil(t, sessionCookie(w), "a password change keeps the session")

	u := repo.byID["u-1"]
	require.True(t, security.CheckPassword("new-password-1", u.PasswordSalt, u.PasswordHash))
	require.False(t, security.CheckPassword("old-password", u.PasswordSalt, u.PasswordHash))

	w = doJSON(r, http.MethodPut, "/auth/me", `{"email":"New@Example.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	c := sessionCookie(w)
	require.NotNil(t, c, "an email change re-issues the session")

	fresh, err := sessions.Verify(c.Value)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", fresh.Email)

	anon := setupRouter(http.MethodPut, "/auth/me", h.UpdateMe, nil)
	w = doJSON(anon, http.MethodPut, "/auth/me", `{"name":"x"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginAndUpdateMe_PendingPasswordChange(t *testing.T) {
	repo := newFakeUserRepo(t, "admin123")
	u := repo.byID["u-1"]
	u.MustChangePassword = true
	repo.byID["u-1"] = u

	sessions := auth.NewManager("s", time.Hour)
	h := handlers.NewAuthHandler(repo, sessions, config.Config{})

	w := doJSON(setupRouter(http.MethodPost, "/auth/login", h.Login, nil), http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"admin123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"mustChangePassword":true`)

	pending, err := sessions.Verify(sessionCookie(w).Value)
	require.NoError(t, err)
	require.True(t, pending.MustChangePassword)

	r := setupRouter(http.MethodPut, "/auth/me", h.UpdateMe, pending)

	w = doJSON(r, http.MethodPut, "/auth/me", `{"name":"Still Admin"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Nil(t, sessionCookie(w), "a name change leaves the flag set")

	w = doJSON(r, http.MethodPut, "/auth/me", `{"password":"a-real-password"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"mustChangePassword":false`)

	c := sessionCookie(w)
	require.NotNil(t, c, "clearing the flag re-issues the session")
	fresh, err := sessions.Verify(c.Value)
	require.NoError(t, err)
	require.False(t, fresh.MustChangePassword)
}

func TestRegister(t *testing.T) {
	repo := newFakeUserRepo(t, "pw-123456")
	h := handlers.NewAuthHandler(repo, auth.NewManager("s", time.Hour), config.Config{})
	r := setupRouter(http.MethodPost, "/auth/register", h.Register, admin())

	w := doJSON(r, http.MethodPost, "/auth/register", `{"email":"Editor@Example.com","password":"long-enough","name":"Ed"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.True(t, strings.Contains(w.Body.String(), `"role":"editor"`))

	w = doJSON(r, http.MethodPost, "/auth/register", `{"email":"editor@example.com","password":"long-enough","name":"Ed"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "Email already in use", decodeError(t, w).Error)

	w = doJSON(r, http.MethodPost, "/auth/register", `{"email":"not-an-email","password":"long-enough"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "email must be a valid email address", decodeError(t, w).Error)
}
