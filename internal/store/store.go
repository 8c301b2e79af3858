// Package store selects and exposes the persistence backend. Handlers only
// see the repository interfaces declared here.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/db"
	"github.com/geocoder89/sitecms/internal/domain/content"
	"github.com/geocoder89/sitecms/internal/domain/media"
	"github.com/geocoder89/sitecms/internal/domain/settings"
	"github.com/geocoder89/sitecms/internal/domain/user"
	"github.com/geocoder89/sitecms/internal/repo/postgres"
	"github.com/geocoder89/sitecms/internal/store/jsonfile"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	UpdateProfile(ctx context.Context, id string, p user.Profile) (user.User, error)
	HasAdmin(ctx context.Context) (bool, error)
}

type ContentRepository interface {
	List(ctx context.Context, f content.ListFilter) ([]content.Record, int, error)
	// GetByID also returns soft-deleted records.
	GetByID(ctx context.Context, kind content.Kind, id string) (content.Record, error)
	// GetBySlug only returns live records.
	GetBySlug(ctx context.Context, kind content.Kind, slug string) (content.Record, error)
	Create(ctx context.Context, r content.Record) (content.Record, error)
	Update(ctx context.Context, r content.Record) (content.Record, error)
	SoftDelete(ctx context.Context, kind content.Kind, id string, at time.Time) (content.Record, error)
	Restore(ctx context.Context, kind content.Kind, id string, at time.Time) (content.Record, error)
	Purge(ctx context.Context, kind content.Kind, id string) error
	PurgeDeletedBefore(ctx context.Context, kind content.Kind, before time.Time) (int, error)
}

type MediaRepository interface {
	Create(ctx context.Context, m media.Media) (media.Media, error)
	List(ctx context.Context, limit, offset int) ([]media.Media, error)
	UpdateAltText(ctx context.Context, url, altText string) (media.Media, error)
	SoftDelete(ctx context.Context, id string, at time.Time) (media.Media, error)
}

type SettingsRepository interface {
	Get(ctx context.Context) (settings.Document, error)
	Put(ctx context.Context, doc settings.Document) error
}

type Backend interface {
	Name() string
	Users() UserRepository
	Content() ContentRepository
	Media() MediaRepository
	Settings() SettingsRepository
	Ping(ctx context.Context) error
	Close() error
}

// Open picks the backend once per process. A configured database that
// cannot be reached is an error; there is no fallback to the JSON file.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (Backend, error) {
	if cfg.UsesDatabase() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}

		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}

		log.Info("storage backend selected", "backend", "postgres")
		return postgresBackend{postgres.NewBackend(pool)}, nil
	}

	b, err := jsonfile.Open(cfg.DataFile, log)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}

	log.Info("storage backend selected", "backend", "jsonfile", "path", cfg.DataFile)
	return jsonBackend{b}, nil
}

// OpenJSON opens the file backend directly. Used by tests and tooling.
func OpenJSON(path string, log *slog.Logger) (Backend, error) {
	b, err := jsonfile.Open(path, log)
	if err != nil {
		return nil, err
	}
	return jsonBackend{b}, nil
}

// The adapters below let the concrete backends return their own repo
// types while satisfying Backend.

type jsonBackend struct{ *jsonfile.Store }

func (b jsonBackend) Users() UserRepository { return b.Store.Users() }
func (b jsonBackend) Content() ContentRepository { return b.Store.Content() }
func (b jsonBackend) Media() MediaRepository { return b.Store.Media() }
func (b jsonBackend) Settings() SettingsRepository { return b.Store.Settings() }

type postgresBackend struct{ *postgres.Backend }

func (b postgresBackend) Users() UserRepository { return b.Backend.Users() }
func (b postgresBackend) Content() ContentRepository { return b.Backend.Content() }
func (b postgresBackend) Media() MediaRepository { return b.Backend.Media() }
func (b postgresBackend) Settings() SettingsRepository { return b.Backend.Settings() }
