package jsonfile

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/sitecms/internal/domain/media"
)

type MediaRepo struct {
	s *Store
}

func (r *MediaRepo) Create(ctx context.Context, m media.Media) (media.Media, error) {
	err := r.s.update(ctx, func(doc *document) error {
		doc.Media = append(doc.Media, m)
		return nil
	})
	if err != nil {
		return media.Media{}, err
	}
	return m, nil
}

// List returns live items, newest first.
func (r *MediaRepo) List(ctx context.Context, limit, offset int) ([]media.Media, error) {
	var live []media.Media
	r.s.view(func(doc *document) {
		for _, m := range doc.Media {
			if m.DeletedAt == nil {
				live = append(live, m)
			}
		}
	})

	sort.SliceStable(live, func(i, j int) bool {
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})

	if offset >= len(live) {
		return []media.Media{}, nil
	}
	end := len(live)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return live[offset:end], nil
}

func (r *MediaRepo) UpdateAltText(ctx context.Context, url, altText string) (media.Media, error) {
	var out media.Media

	err := r.s.update(ctx, func(doc *document) error {
		for i := range doc.Media {
			if doc.Media[i].URL == url && doc.Media[i].DeletedAt == nil {
				doc.Media[i].AltText = altText
				out = doc.Media[i]
				return nil
			}
		}
		return media.ErrNotFound
	})
	if err != nil {
		return media.Media{}, err
	}
	return out, nil
}

func (r *MediaRepo) SoftDelete(ctx context.Context, id string, at time.Time) (media.Media, error) {
	var out media.Media

	err := r.s.update(ctx, func(doc *document) error {
		for i := range doc.Media {
			if doc.Media[i].ID != id {
				continue
			}
			if doc.Media[i].DeletedAt == nil {
				t := at
				doc.Media[i].DeletedAt = &t
			}
			out = doc.Media[i]
			return nil
		}
		return media.ErrNotFound
	})
	if err != nil {
		return media.Media{}, err
	}
	return out, nil
}
