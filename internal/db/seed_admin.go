package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/domain/user"
	"github.com/geocoder89/sitecms/internal/security"
	"github.com/google/uuid"
)

// AdminStore is the slice of the user repository seeding needs.
type AdminStore interface {
	HasAdmin(ctx context.Context) (bool, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser bootstraps the first admin when none exists. The account
// is flagged mustChangePassword since its credentials are well known.
func EnsureAdminUser(ctx context.Context, users AdminStore, cfg config.Config, log *slog.Logger) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	exists, err := users.HasAdmin(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	salt, hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:                 uuid.NewString(),
		Email:              user.NormalizeEmail(cfg.AdminEmail),
		PasswordSalt:       salt,
		PasswordHash:       hash,
		Name:               cfg.AdminName,
		Role:               user.RoleAdmin,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if _, err := users.Create(ctx, u); err != nil {
		return false, err
	}

	log.Warn("seeded default admin account; change its password immediately",
		"email", u.Email,
	)
	return true, nil
}
