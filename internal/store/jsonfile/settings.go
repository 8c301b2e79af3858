package jsonfile

import (
	"context"

	"github.com/geocoder89/sitecms/internal/domain/settings"
)

type SettingsRepo struct {
	s *Store
}

func (r *SettingsRepo) Get(ctx context.Context) (settings.Document, error) {
	var out settings.Document
	r.s.view(func(doc *document) {
		out = doc.Settings.Clone()
	})
	return out, nil
}

func (r *SettingsRepo) Put(ctx context.Context, next settings.Document) error {
	return r.s.update(ctx, func(doc *document) error {
		doc.Settings = next.Clone()
		return nil
	})
}
