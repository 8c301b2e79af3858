package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/sitecms/internal/domain/content"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContentRepo struct {
	pool *pgxpool.Pool
}

func NewContentRepo(pool *pgxpool.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

const recordColumns = `id, kind, slug, status, position, fields, created_at, updated_at, deleted_at`

func scanRecord(row pgx.Row, extra ...any) (content.Record, error) {
	var (
		rec    content.Record
		kind   string
		fields map[string]any
	)

	dest := append([]any{
		&rec.ID,
		&kind,
		&rec.Slug,
		&rec.Status,
		&rec.Position,
		&fields,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.DeletedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return content.Record{}, content.ErrNotFound
		}
		return content.Record{}, err
	}

	rec.Kind = content.Kind(kind)
	if fields == nil {
		fields = map[string]any{}
	}
	rec.Fields = fields
	return rec, nil
}

func slugErr(err error) error {
	if name, ok := uniqueViolation(err); ok && name == "content_records_live_slug_key" {
		return content.ErrSlugTaken
	}
	return err
}

func (r *ContentRepo) List(ctx context.Context, f content.ListFilter) ([]content.Record, int, error) {
	f = f.Normalize()

	query := `SELECT ` + recordColumns + `, COUNT(*) OVER() AS total
		FROM content_records
		WHERE kind = $1`

	if !f.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	if !f.IncludeDrafts {
		query += ` AND status = 'published'`
	}

	// stable ordering for pagination
	query += ` ORDER BY position ASC, created_at DESC, id ASC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, string(f.Kind), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	output := make([]content.Record, 0, f.Limit)
	total := 0

	for rows.Next() {
		var t int
		rec, err := scanRecord(rows, &t)
		if err != nil {
			return nil, 0, err
		}
		total = t
		output = append(output, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// an offset past the end yields no rows and so no window count
	if len(output) == 0 && f.Offset > 0 {
		total, err = r.count(ctx, f)
		if err != nil {
			return nil, 0, err
		}
	}

	return output, total, nil
}

func (r *ContentRepo) count(ctx context.Context, f content.ListFilter) (int, error) {
	query := `SELECT COUNT(*) FROM content_records WHERE kind = $1`
	if !f.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	if !f.IncludeDrafts {
		query += ` AND status = 'published'`
	}

	var n int
	err := r.pool.QueryRow(ctx, query, string(f.Kind)).Scan(&n)
	return n, err
}

func (r *ContentRepo) GetByID(ctx context.Context, kind content.Kind, id string) (content.Record, error) {
	if !validID(id) {
		return content.Record{}, content.ErrNotFound
	}

	return scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM content_records WHERE kind = $1 AND id = $2`,
		string(kind), id,
	))
}

func (r *ContentRepo) GetBySlug(ctx context.Context, kind content.Kind, slug string) (content.Record, error) {
	return scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM content_records
		WHERE kind = $1 AND slug = $2 AND slug <> '' AND deleted_at IS NULL`,
		string(kind), slug,
	))
}

func (r *ContentRepo) Create(ctx context.Context, rec content.Record) (content.Record, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO content_records (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rec.ID, string(rec.Kind), rec.Slug, rec.Status, rec.Position, rec.Fields, rec.CreatedAt, rec.UpdatedAt, rec.DeletedAt,
	)

	if err != nil {
		if errors.Is(slugErr(err), content.ErrSlugTaken) {
			return content.Record{}, content.ErrSlugTaken
		}
		return content.Record{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

func (r *ContentRepo) Update(ctx context.Context, rec content.Record) (content.Record, error) {
	if !validID(rec.ID) {
		return content.Record{}, content.ErrNotFound
	}

	out, err := scanRecord(r.pool.QueryRow(ctx,
		`UPDATE content_records
			SET slug = $3,
				status = $4,
				position = $5,
				fields = $6,
				updated_at = $7
		WHERE kind = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING `+recordColumns,
		string(rec.Kind), rec.ID, rec.Slug, rec.Status, rec.Position, rec.Fields, rec.UpdatedAt,
	))

	if err != nil {
		return content.Record{}, slugErr(err)
	}
	return out, nil
}

// SoftDelete keeps the first deletion timestamp, so repeating it is a no-op.
func (r *ContentRepo) SoftDelete(ctx context.Context, kind content.Kind, id string, at time.Time) (content.Record, error) {
	if !validID(id) {
		return content.Record{}, content.ErrNotFound
	}

	return scanRecord(r.pool.QueryRow(ctx,
		`UPDATE content_records
			SET deleted_at = COALESCE(deleted_at, $3),
				updated_at = CASE WHEN deleted_at IS NULL THEN $3 ELSE updated_at END
		WHERE kind = $1 AND id = $2
		RETURNING `+recordColumns,
		string(kind), id, at,
	))
}

func (r *ContentRepo) Restore(ctx context.Context, kind content.Kind, id string, at time.Time) (content.Record, error) {
	if !validID(id) {
		return content.Record{}, content.ErrNotFound
	}

	out, err := scanRecord(r.pool.QueryRow(ctx,
		`UPDATE content_records
			SET deleted_at = NULL,
				updated_at = CASE WHEN deleted_at IS NULL THEN updated_at ELSE $3 END
		WHERE kind = $1 AND id = $2
		RETURNING `+recordColumns,
		string(kind), id, at,
	))

	if err != nil {
		return content.Record{}, slugErr(err)
	}
	return out, nil
}

func (r *ContentRepo) Purge(ctx context.Context, kind content.Kind, id string) error {
	if !validID(id) {
		return content.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM content_records WHERE kind = $1 AND id = $2 AND deleted_at IS NOT NULL`,
		string(kind), id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		// distinguish a live record from a missing one
		if _, err := r.GetByID(ctx, kind, id); err != nil {
			return err
		}
		return content.ErrNotDeleted
	}
	return nil
}

func (r *ContentRepo) PurgeDeletedBefore(ctx context.Context, kind content.Kind, before time.Time) (int, error) {
	query := `DELETE FROM content_records WHERE deleted_at IS NOT NULL AND deleted_at < $1`
	args := []any{before}

	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, string(kind))
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
