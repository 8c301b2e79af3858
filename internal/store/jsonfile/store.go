// Package jsonfile keeps the whole CMS in one JSON document on local disk.
// It is meant for development: a single process, guarded by an RWMutex,
// with no cross-process locking.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/geocoder89/sitecms/internal/domain/content"
	"github.com/geocoder89/sitecms/internal/domain/media"
	"github.com/geocoder89/sitecms/internal/domain/settings"
	"github.com/geocoder89/sitecms/internal/domain/user"
)

const documentVersion = 1

type storedUser struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	PasswordSalt       string    `json:"passwordSalt"`
	PasswordHash       string    `json:"passwordHash"`
	Role               string    `json:"role"`
	MustChangePassword bool      `json:"mustChangePassword"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func fromUser(u user.User) storedUser {
	return storedUser{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		PasswordSalt:       u.PasswordSalt,
		PasswordHash:       u.PasswordHash,
		Role:               u.Role,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (s storedUser) toUser() user.User {
	return user.User{
		ID:                 s.ID,
		Email:              s.Email,
		Name:               s.Name,
		PasswordSalt:       s.PasswordSalt,
		PasswordHash:       s.PasswordHash,
		Role:               s.Role,
		MustChangePassword: s.MustChangePassword,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

type document struct {
	Version  int               `json:"version"`
	Users    []storedUser      `json:"users"`
	Records  []content.Record  `json:"records"`
	Media    []media.Media     `json:"media"`
	Settings settings.Document `json:"settings"`
}

type Store struct {
	path string
	log  *slog.Logger

	mu  sync.RWMutex
	doc document
	// raw is the last persisted encoding, used to roll back a failed write.
	raw []byte
}

// Open loads path, creating its directory if needed. A missing or empty
// file starts an empty document.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{path: path, log: log}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.doc = emptyDocument()
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	case len(raw) == 0:
		s.doc = emptyDocument()
	default:
		var doc document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		s.doc = doc
		s.raw = raw
	}

	return s, nil
}

func emptyDocument() document {
	return document{Version: documentVersion, Settings: settings.Document{}}
}

func (s *Store) Name() string { return "jsonfile" }

func (s *Store) Path() string { return s.path }

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

func (s *Store) Close() error { return nil }

func (s *Store) Users() *UsersRepo       { return &UsersRepo{s: s} }
func (s *Store) Content() *ContentRepo   { return &ContentRepo{s: s} }
func (s *Store) Media() *MediaRepo       { return &MediaRepo{s: s} }
func (s *Store) Settings() *SettingsRepo { return &SettingsRepo{s: s} }

func (s *Store) view(fn func(doc *document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.doc)
}

// update applies fn and persists the result. If fn or the write fails the
// in-memory document is rolled back to what is on disk.
func (s *Store) update(ctx context.Context, fn func(doc *document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(&s.doc); err != nil {
		s.rollback()
		return err
	}

	s.doc.Version = documentVersion

	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		s.rollback()
		return fmt.Errorf("encode document: %w", err)
	}

	if err := writeFileAtomic(s.path, raw, s.log); err != nil {
		s.rollback()
		return fmt.Errorf("persist document: %w", err)
	}

	s.raw = raw
	return nil
}

func (s *Store) rollback() {
	if len(s.raw) == 0 {
		s.doc = emptyDocument()
		return
	}

	var doc document
	if err := json.Unmarshal(s.raw, &doc); err != nil {
		s.log.Error("jsonfile rollback failed", "err", err)
		return
	}
	s.doc = doc
}
