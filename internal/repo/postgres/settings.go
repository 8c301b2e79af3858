package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/sitecms/internal/domain/settings"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) Get(ctx context.Context) (settings.Document, error) {
	var doc map[string]any

	err := r.pool.QueryRow(ctx, `SELECT document FROM site_settings WHERE id = 1`).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings.Document{}, nil
		}
		return nil, err
	}

	if doc == nil {
		return settings.Document{}, nil
	}
	return settings.Document(doc), nil
}

func (r *SettingsRepo) Put(ctx context.Context, doc settings.Document) error {
	if doc == nil {
		doc = settings.Document{}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO site_settings (id, document, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
			SET document = EXCLUDED.document,
				updated_at = NOW()`,
		map[string]any(doc),
	)
	return err
}
