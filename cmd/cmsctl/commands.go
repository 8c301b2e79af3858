package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/db"
	"github.com/geocoder89/sitecms/internal/domain/content"
	"github.com/geocoder89/sitecms/internal/domain/user"
	"github.com/geocoder89/sitecms/internal/observability"
	"github.com/geocoder89/sitecms/internal/security"
	"github.com/geocoder89/sitecms/internal/store"
)

const minPasswordLength = 8

type app struct {
	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cmsctl",
		Short:         "Operator tasks for the sitecms API",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.cfg = config.Load()
			a.log = observability.NewLogger(a.cfg.Env)
		},
	}

	root.AddCommand(
		a.migrateCmd(),
		a.seedAdminCmd(),
		a.passwdCmd(),
		a.purgeCmd(),
	)
	return root
}

func (a *app) open(ctx context.Context) (store.Backend, error) {
	return store.Open(ctx, a.cfg, a.log)
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.UsesDatabase() {
				return errors.New("DATABASE_URL is not set; the JSON backend needs no migrations")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}

			version, err := db.MigrationStatus(ctx, pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}

func (a *app) seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the bootstrap admin when no admin exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			created, err := db.EnsureAdminUser(ctx, b.Users(), a.cfg, a.log)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s\n", a.cfg.AdminEmail)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "an admin already exists")
			}
			return nil
		},
	}
}

func (a *app) passwdCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Set a user's password (read from stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			u, err := b.Users().GetByEmail(ctx, user.NormalizeEmail(email))
			if err != nil {
				return fmt.Errorf("find %s: %w", email, err)
			}

			salt, hash, err := security.HashPassword(password)
			if err != nil {
				return err
			}

			if _, err := b.Users().UpdateProfile(ctx, u.ID, user.Profile{PasswordSalt: &salt, PasswordHash: &hash}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", u.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return password, nil
}

func (a *app) purgeCmd() *cobra.Command {
	var (
		kind      string
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove records soft-deleted before a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			var k content.Kind
			if kind != "" {
				parsed, ok := content.ParseKind(kind)
				if !ok {
					return fmt.Errorf("unknown kind %q", kind)
				}
				k = parsed
			}
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			cutoff := time.Now().UTC().Add(-olderThan)
			n, err := b.Content().PurgeDeletedBefore(ctx, k, cutoff)
			if err != nil {
				return err
			}

			a.log.Info("purged soft-deleted records", "kind", kind, "before", cutoff, "count", n)
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d records\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "content segment to purge (all kinds when empty)")
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum age of the deletion")
	return cmd
}
