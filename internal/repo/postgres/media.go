package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/sitecms/internal/domain/media"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MediaRepo struct {
	pool *pgxpool.Pool
}

func NewMediaRepo(pool *pgxpool.Pool) *MediaRepo {
	return &MediaRepo{pool: pool}
}

const mediaColumns = `id, url, storage_key, filename, original_name, alt_text, mime_type, kind, variant, size_bytes, created_at, deleted_at`

func scanMedia(row pgx.Row) (media.Media, error) {
	var m media.Media

	err := row.Scan(
		&m.ID,
		&m.URL,
		&m.Key,
		&m.Filename,
		&m.OriginalName,
		&m.AltText,
		&m.MimeType,
		&m.Kind,
		&m.Variant,
		&m.SizeBytes,
		&m.CreatedAt,
		&m.DeletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return media.Media{}, media.ErrNotFound
		}
		return media.Media{}, err
	}
	return m, nil
}

func (r *MediaRepo) Create(ctx context.Context, m media.Media) (media.Media, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO media (`+mediaColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		m.ID, m.URL, m.Key, m.Filename, m.OriginalName, m.AltText, m.MimeType, m.Kind, m.Variant, m.SizeBytes, m.CreatedAt, m.DeletedAt,
	)

	if err != nil {
		return media.Media{}, fmt.Errorf("insert media: %w", err)
	}
	return m, nil
}

func (r *MediaRepo) List(ctx context.Context, limit, offset int) ([]media.Media, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+mediaColumns+` FROM media
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id ASC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	output := make([]media.Media, 0, limit)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		output = append(output, m)
	}

	return output, rows.Err()
}

func (r *MediaRepo) UpdateAltText(ctx context.Context, url, altText string) (media.Media, error) {
	return scanMedia(r.pool.QueryRow(ctx,
		`UPDATE media SET alt_text = $2
		WHERE id = (
			SELECT id FROM media WHERE url = $1 AND deleted_at IS NULL
			ORDER BY created_at DESC LIMIT 1
		)
		RETURNING `+mediaColumns,
		url, altText,
	))
}

func (r *MediaRepo) SoftDelete(ctx context.Context, id string, at time.Time) (media.Media, error) {
	if !validID(id) {
		return media.Media{}, media.ErrNotFound
	}

	return scanMedia(r.pool.QueryRow(ctx,
		`UPDATE media SET deleted_at = COALESCE(deleted_at, $2)
		WHERE id = $1
		RETURNING `+mediaColumns,
		id, at,
	))
}
