package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/sitecms/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

const userColumns = `id, email, name, password_salt, password_hash, role, must_change_password, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordSalt,
		&u.PasswordHash,
		&u.Role,
		&u.MustChangePassword,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if !validID(id) {
		return user.User{}, user.ErrNotFound
	}

	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`,
		user.NormalizeEmail(email),
	))
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	u.Email = user.NormalizeEmail(u.Email)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Email, u.Name, u.PasswordSalt, u.PasswordHash, u.Role, u.MustChangePassword, u.CreatedAt, u.UpdatedAt,
	)

	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// UpdateProfile builds the SET list from the non-nil fields of p. A new
// password always arrives with its own fresh salt.
func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, p user.Profile) (user.User, error) {
	if !validID(id) {
		return user.User{}, user.ErrNotFound
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{id}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Email != nil {
		add("email", user.NormalizeEmail(*p.Email))
	}
	if p.PasswordHash != nil && p.PasswordSalt != nil {
		add("password_salt", *p.PasswordSalt)
		add("password_hash", *p.PasswordHash)
		sets = append(sets, "must_change_password = FALSE")
	}

	u, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+userColumns,
		args...,
	))

	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) HasAdmin(ctx context.Context) (bool, error) {
	var exists bool

	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`,
		user.RoleAdmin,
	).Scan(&exists)

	return exists, err
}
