package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/sitecms/internal/db"
	"github.com/geocoder89/sitecms/internal/domain/content"
	"github.com/geocoder89/sitecms/internal/domain/settings"
	"github.com/geocoder89/sitecms/internal/domain/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// setupBackend needs a disposable database in TEST_DB_DSN; its tables are
// truncated.
func setupBackend(t *testing.T) *Backend {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn, 2)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE users, content_records, media, site_settings`)
	require.NoError(t, err)

	return NewBackend(pool)
}

func newRecord(kind content.Kind, slug string) content.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return content.Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Slug:      slug,
		Status:    content.StatusPublished,
		Fields:    map[string]any{"title": slug},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestContentRepo_SoftDeleteAndSlugs(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	repo := b.Content()

	a, err := repo.Create(ctx, newRecord(content.KindBlog, "hello"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newRecord(content.KindBlog, "hello"))
	require.ErrorIs(t, err, content.ErrSlugTaken)

	at := time.Now().UTC().Truncate(time.Microsecond)
	d1, err := repo.SoftDelete(ctx, content.KindBlog, a.ID, at)
	require.NoError(t, err)
	d2, err := repo.SoftDelete(ctx, content.KindBlog, a.ID, at.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, d1.DeletedAt.Equal(*d2.DeletedAt))

	_, err = repo.GetBySlug(ctx, content.KindBlog, "hello")
	require.ErrorIs(t, err, content.ErrNotFound)

	got, err := repo.GetByID(ctx, content.KindBlog, a.ID)
	require.NoError(t, err)
	require.Equal(t, "hello", got.Fields["title"])

	_, err = repo.Create(ctx, newRecord(content.KindBlog, "hello"))
	require.NoError(t, err)

	_, err = repo.Restore(ctx, content.KindBlog, a.ID, time.Now().UTC())
	require.ErrorIs(t, err, content.ErrSlugTaken)

	require.NoError(t, repo.Purge(ctx, content.KindBlog, a.ID))
	_, err = repo.GetByID(ctx, content.KindBlog, "not-a-uuid")
	require.ErrorIs(t, err, content.ErrNotFound)
}

func TestContentRepo_ListPagination(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	repo := b.Content()

	for i, slug := range []string{"a", "b", "c"} {
		rec := newRecord(content.KindProjects, slug)
		rec.Position = i
		_, err := repo.Create(ctx, rec)
		require.NoError(t, err)
	}

	items, total, err := repo.List(ctx, content.ListFilter{Kind: content.KindProjects, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 2)

	items, total, err = repo.List(ctx, content.ListFilter{Kind: content.KindProjects, Offset: 10})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Empty(t, items)
}

func TestUsersRepo_EmailConflict(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	repo := b.Users()

	now := time.Now().UTC()
	_, err := repo.Create(ctx, user.User{ID: uuid.NewString(), Email: "a@example.com", PasswordSalt: "s", PasswordHash: "h", Role: user.RoleAdmin, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	other, err := repo.Create(ctx, user.User{ID: uuid.NewString(), Email: "b@example.com", PasswordSalt: "s", PasswordHash: "h", Role: user.RoleEditor, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	taken := "A@EXAMPLE.COM"
	_, err = repo.UpdateProfile(ctx, other.ID, user.Profile{Email: &taken})
	require.ErrorIs(t, err, user.ErrEmailTaken)

	ok, err := repo.HasAdmin(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSettingsRepo_ReplaceWholesale(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	repo := b.Settings()

	doc, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, doc)

	require.NoError(t, repo.Put(ctx, settings.Document{"brand": "a", "footer": "f"}))
	require.NoError(t, repo.Put(ctx, settings.Document{"brand": "b"}))

	doc, err = repo.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, settings.Document{"brand": "b"}, doc)
}
