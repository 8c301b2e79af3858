package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend groups the repositories sharing one pool. The pool is owned by
// the caller that created it; Close releases it.
type Backend struct {
	pool     *pgxpool.Pool
	users    *UsersRepo
	content  *ContentRepo
	media    *MediaRepo
	settings *SettingsRepo
}

func NewBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{
		pool:     pool,
		users:    NewUsersRepo(pool),
		content:  NewContentRepo(pool),
		media:    NewMediaRepo(pool),
		settings: NewSettingsRepo(pool),
	}
}

func (b *Backend) Name() string { return "postgres" }

func (b *Backend) Pool() *pgxpool.Pool { return b.pool }

func (b *Backend) Users() *UsersRepo       { return b.users }
func (b *Backend) Content() *ContentRepo   { return b.content }
func (b *Backend) Media() *MediaRepo       { return b.media }
func (b *Backend) Settings() *SettingsRepo { return b.settings }

func (b *Backend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

// uniqueViolation reports the constraint name of a 23505 error.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// validID guards uuid columns so a malformed id reads as "not found"
// instead of a cast error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
