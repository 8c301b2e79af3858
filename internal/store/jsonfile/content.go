package jsonfile

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/sitecms/internal/domain/content"
)

type ContentRepo struct {
	s *Store
}

func (r *ContentRepo) List(ctx context.Context, f content.ListFilter) ([]content.Record, int, error) {
	f = f.Normalize()

	var matched []content.Record
	r.s.view(func(doc *document) {
		for _, rec := range doc.Records {
			if f.Visible(rec) {
				matched = append(matched, rec.Clone())
			}
		}
	})

	sortRecords(matched)

	total := len(matched)
	if f.Offset >= total {
		return []content.Record{}, total, nil
	}

	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

// sortRecords orders by position, then newest first.
func sortRecords(items []content.Record) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func (r *ContentRepo) GetByID(ctx context.Context, kind content.Kind, id string) (content.Record, error) {
	var (
		out   content.Record
		found bool
	)
	r.s.view(func(doc *document) {
		if i := findRecord(doc, kind, id); i >= 0 {
			out, found = doc.Records[i].Clone(), true
		}
	})
	if !found {
		return content.Record{}, content.ErrNotFound
	}
	return out, nil
}

func (r *ContentRepo) GetBySlug(ctx context.Context, kind content.Kind, slug string) (content.Record, error) {
	var (
		out   content.Record
		found bool
	)
	r.s.view(func(doc *document) {
		for _, rec := range doc.Records {
			if rec.Kind == kind && rec.Slug == slug && !rec.Deleted() {
				out, found = rec.Clone(), true
				return
			}
		}
	})
	if !found {
		return content.Record{}, content.ErrNotFound
	}
	return out, nil
}

func (r *ContentRepo) Create(ctx context.Context, rec content.Record) (content.Record, error) {
	err := r.s.update(ctx, func(doc *document) error {
		if slugTaken(doc, rec.Kind, rec.Slug, "") {
			return content.ErrSlugTaken
		}
		doc.Records = append(doc.Records, rec.Clone())
		return nil
	})
	if err != nil {
		return content.Record{}, err
	}
	return rec, nil
}

func (r *ContentRepo) Update(ctx context.Context, rec content.Record) (content.Record, error) {
	var out content.Record

	err := r.s.update(ctx, func(doc *document) error {
		i := findRecord(doc, rec.Kind, rec.ID)
		if i < 0 || doc.Records[i].Deleted() {
			return content.ErrNotFound
		}
		if slugTaken(doc, rec.Kind, rec.Slug, rec.ID) {
			return content.ErrSlugTaken
		}

		next := rec.Clone()
		next.CreatedAt = doc.Records[i].CreatedAt
		next.DeletedAt = nil
		doc.Records[i] = next
		out = next.Clone()
		return nil
	})
	if err != nil {
		return content.Record{}, err
	}
	return out, nil
}

func (r *ContentRepo) SoftDelete(ctx context.Context, kind content.Kind, id string, at time.Time) (content.Record, error) {
	var out content.Record

	err := r.s.update(ctx, func(doc *document) error {
		i := findRecord(doc, kind, id)
		if i < 0 {
			return content.ErrNotFound
		}
		if !doc.Records[i].Deleted() {
			t := at
			doc.Records[i].DeletedAt = &t
			doc.Records[i].UpdatedAt = at
		}
		out = doc.Records[i].Clone()
		return nil
	})
	if err != nil {
		return content.Record{}, err
	}
	return out, nil
}

func (r *ContentRepo) Restore(ctx context.Context, kind content.Kind, id string, at time.Time) (content.Record, error) {
	var out content.Record

	err := r.s.update(ctx, func(doc *document) error {
		i := findRecord(doc, kind, id)
		if i < 0 {
			return content.ErrNotFound
		}
		if doc.Records[i].Deleted() {
			if slugTaken(doc, kind, doc.Records[i].Slug, id) {
				return content.ErrSlugTaken
			}
			doc.Records[i].DeletedAt = nil
			doc.Records[i].UpdatedAt = at
		}
		out = doc.Records[i].Clone()
		return nil
	})
	if err != nil {
		return content.Record{}, err
	}
	return out, nil
}

func (r *ContentRepo) Purge(ctx context.Context, kind content.Kind, id string) error {
	return r.s.update(ctx, func(doc *document) error {
		i := findRecord(doc, kind, id)
		if i < 0 {
			return content.ErrNotFound
		}
		if !doc.Records[i].Deleted() {
			return content.ErrNotDeleted
		}
		doc.Records = append(doc.Records[:i], doc.Records[i+1:]...)
		return nil
	})
}

// PurgeDeletedBefore removes records soft-deleted before the cutoff. An
// empty kind matches every kind.
func (r *ContentRepo) PurgeDeletedBefore(ctx context.Context, kind content.Kind, before time.Time) (int, error) {
	var n int

	err := r.s.update(ctx, func(doc *document) error {
		kept := doc.Records[:0]
		for _, rec := range doc.Records {
			if (kind == "" || rec.Kind == kind) && rec.Deleted() && rec.DeletedAt.Before(before) {
				n++
				continue
			}
			kept = append(kept, rec)
		}
		doc.Records = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func findRecord(doc *document, kind content.Kind, id string) int {
	for i, rec := range doc.Records {
		if rec.ID == id && rec.Kind == kind {
			return i
		}
	}
	return -1
}

func slugTaken(doc *document, kind content.Kind, slug, exceptID string) bool {
	if slug == "" {
		return false
	}
	for _, rec := range doc.Records {
		if rec.Kind == kind && rec.Slug == slug && rec.ID != exceptID && !rec.Deleted() {
			return true
		}
	}
	return false
}
