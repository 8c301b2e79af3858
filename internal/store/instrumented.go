package store

import (
	"context"
	"time"

	"github.com/geocoder89/sitecms/internal/domain/content"
	"github.com/geocoder89/sitecms/internal/domain/media"
	"github.com/geocoder89/sitecms/internal/domain/settings"
	"github.com/geocoder89/sitecms/internal/domain/user"
	"github.com/geocoder89/sitecms/internal/observability"
)

// Instrument wraps every repository call of b in Prom.ObserveDB.
func Instrument(b Backend, p *observability.Prom) Backend {
	p.ExpectErrors(
		user.ErrNotFound, user.ErrEmailTaken,
		content.ErrNotFound, content.ErrSlugTaken, content.ErrNotDeleted,
		media.ErrNotFound,
	)
	return &instrumented{Backend: b, prom: p}
}

type instrumented struct {
	Backend
	prom *observability.Prom
}

func (i *instrumented) Users() UserRepository {
	return observedUsers{next: i.Backend.Users(), prom: i.prom}
}

func (i *instrumented) Content() ContentRepository {
	return observedContent{next: i.Backend.Content(), prom: i.prom}
}

func (i *instrumented) Media() MediaRepository {
	return observedMedia{next: i.Backend.Media(), prom: i.prom}
}

func (i *instrumented) Settings() SettingsRepository {
	return observedSettings{next: i.Backend.Settings(), prom: i.prom}
}

type observedUsers struct {
	next UserRepository
	prom *observability.Prom
}

func (o observedUsers) GetByID(ctx context.Context, id string) (u user.User, err error) {
	err = o.prom.ObserveDB("users.get_by_id", func() error {
		u, err = o.next.GetByID(ctx, id)
		return err
	})
	return u, err
}

func (o observedUsers) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = o.prom.ObserveDB("users.get_by_email", func() error {
		u, err = o.next.GetByEmail(ctx, email)
		return err
	})
	return u, err
}

func (o observedUsers) Create(ctx context.Context, in user.User) (u user.User, err error) {
	err = o.prom.ObserveDB("users.create", func() error {
		u, err = o.next.Create(ctx, in)
		return err
	})
	return u, err
}

func (o observedUsers) UpdateProfile(ctx context.Context, id string, p user.Profile) (u user.User, err error) {
	err = o.prom.ObserveDB("users.update_profile", func() error {
		u, err = o.next.UpdateProfile(ctx, id, p)
		return err
	})
	return u, err
}

func (o observedUsers) HasAdmin(ctx context.Context) (ok bool, err error) {
	err = o.prom.ObserveDB("users.has_admin", func() error {
		ok, err = o.next.HasAdmin(ctx)
		return err
	})
	return ok, err
}

type observedContent struct {
	next ContentRepository
	prom *observability.Prom
}

func (o observedContent) List(ctx context.Context, f content.ListFilter) (items []content.Record, total int, err error) {
	err = o.prom.ObserveDB("content.list", func() error {
		items, total, err = o.next.List(ctx, f)
		return err
	})
	return items, total, err
}

func (o observedContent) GetByID(ctx context.Context, kind content.Kind, id string) (r content.Record, err error) {
	err = o.prom.ObserveDB("content.get_by_id", func() error {
		r, err = o.next.GetByID(ctx, kind, id)
		return err
	})
	return r, err
}

func (o observedContent) GetBySlug(ctx context.Context, kind content.Kind, slug string) (r content.Record, err error) {
	err = o.prom.ObserveDB("content.get_by_slug", func() error {
		r, err = o.next.GetBySlug(ctx, kind, slug)
		return err
	})
	return r, err
}

func (o observedContent) Create(ctx context.Context, in content.Record) (r content.Record, err error) {
	err = o.prom.ObserveDB("content.create", func() error {
		r, err = o.next.Create(ctx, in)
		return err
	})
	return r, err
}

func (o observedContent) Update(ctx context.Context, in content.Record) (r content.Record, err error) {
	err = o.prom.ObserveDB("content.update", func() error {
		r, err = o.next.Update(ctx, in)
		return err
	})
	return r, err
}

func (o observedContent) SoftDelete(ctx context.Context, kind content.Kind, id string, at time.Time) (r content.Record, err error) {
	err = o.prom.ObserveDB("content.soft_delete", func() error {
		r, err = o.next.SoftDelete(ctx, kind, id, at)
		return err
	})
	return r, err
}

func (o observedContent) Restore(ctx context.Context, kind content.Kind, id string, at time.Time) (r content.Record, err error) {
	err = o.prom.ObserveDB("content.restore", func() error {
		r, err = o.next.Restore(ctx, kind, id, at)
		return err
	})
	return r, err
}

func (o observedContent) Purge(ctx context.Context, kind content.Kind, id string) error {
	return o.prom.ObserveDB("content.purge", func() error {
		return o.next.Purge(ctx, kind, id)
	})
}

func (o observedContent) PurgeDeletedBefore(ctx context.Context, kind content.Kind, before time.Time) (n int, err error) {
	err = o.prom.ObserveDB("content.purge_deleted_before", func() error {
		n, err = o.next.PurgeDeletedBefore(ctx, kind, before)
		return err
	})
	return n, err
}

type observedMedia struct {
	next MediaRepository
	prom *observability.Prom
}

func (o observedMedia) Create(ctx context.Context, in media.Media) (m media.Media, err error) {
	err = o.prom.ObserveDB("media.create", func() error {
		m, err = o.next.Create(ctx, in)
		return err
	})
	return m, err
}

func (o observedMedia) List(ctx context.Context, limit, offset int) (items []media.Media, err error) {
	err = o.prom.ObserveDB("media.list", func() error {
		items, err = o.next.List(ctx, limit, offset)
		return err
	})
	return items, err
}

func (o observedMedia) UpdateAltText(ctx context.Context, url, altText string) (m media.Media, err error) {
	err = o.prom.ObserveDB("media.update_alt_text", func() error {
		m, err = o.next.UpdateAltText(ctx, url, altText)
		return err
	})
	return m, err
}

func (o observedMedia) SoftDelete(ctx context.Context, id string, at time.Time) (m media.Media, err error) {
	err = o.prom.ObserveDB("media.soft_delete", func() error {
		m, err = o.next.SoftDelete(ctx, id, at)
		return err
	})
	return m, err
}

type observedSettings struct {
	next SettingsRepository
	prom *observability.Prom
}

func (o observedSettings) Get(ctx context.Context) (doc settings.Document, err error) {
	err = o.prom.ObserveDB("settings.get", func() error {
		doc, err = o.next.Get(ctx)
		return err
	})
	return doc, err
}

func (o observedSettings) Put(ctx context.Context, doc settings.Document) error {
	return o.prom.ObserveDB("settings.put", func() error {
		return o.next.Put(ctx, doc)
	})
}
