package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/geocoder89/sitecms/internal/actorctx"
	"github.com/geocoder89/sitecms/internal/cache"
	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/domain/content"
	"github.com/geocoder89/sitecms/internal/observability"
	"github.com/geocoder89/sitecms/internal/store"
)

type ContentHandler struct {
	repo  store.ContentRepository
	cache *cache.Cache
	inv   *Invalidator
	prom  *observability.Prom
	log   *slog.Logger
	now   func() time.Time
}

func NewContentHandler(repo store.ContentRepository, c *cache.Cache, inv *Invalidator, prom *observability.Prom, log *slog.Logger) *ContentHandler {
	return &ContentHandler{
		repo:  repo,
		cache: c,
		inv:   inv,
		prom:  prom,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List serves GET /{segment}. Anonymous callers see published records only
// and get a cached response.
func (h *ContentHandler) List(segment string, kind content.Kind) func(*gin.Context, []string) error {
	return func(ctx *gin.Context, _ []string) error {
		limit, err := queryInt(ctx, "limit")
		if err != nil {
			return err
		}
		offset, err := queryInt(ctx, "offset")
		if err != nil {
			return err
		}

		_, authed := actorctx.ClaimsFrom(ctx.Request.Context())

		f := content.ListFilter{
			Kind:          kind,
			IncludeDrafts: authed,
			Limit:         limit,
			Offset:        offset,
		}.Normalize()

		ctx.Header("X-Limit", strconv.Itoa(f.Limit))
		ctx.Header("X-Offset", strconv.Itoa(f.Offset))

		load := func() (rendered, error) {
			cctx, cancel := config.WithTimeout(3 * time.Second)
			defer cancel()

			items, total, err := h.repo.List(cctx, f)
			if err != nil {
				return rendered{}, err
			}
			if items == nil {
				items = []content.Record{}
			}
			return render(items, total)
		}

		if authed {
			r, err := load()
			if err != nil {
				return err
			}
			r.write(ctx, http.StatusOK)
			return nil
		}
		return publicRead(ctx, h.cache, h.prom, cache.ListKey(segment, f.Limit, f.Offset), load)
	}
}

// Get serves GET /{segment}/{slugOrId}. Soft-deleted records are only
// visible to signed-in callers looking them up by id.
func (h *ContentHandler) Get(segment string, kind content.Kind) func(*gin.Context, []string) error {
	schema, _ := content.SchemaFor(kind)

	return func(ctx *gin.Context, args []string) error {
		ref := args[0]
		_, authed := actorctx.ClaimsFrom(ctx.Request.Context())

		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		if authed {
			rec, err := h.lookup(cctx, kind, ref)
			if err != nil {
				if isNotFound(err) {
					return NotFound(schema.Label + " not found")
				}
				return err
			}
			return RespondJSONWithETag(ctx, http.StatusOK, rec)
		}

		return publicRead(ctx, h.cache, h.prom, cache.DetailKey(segment, ref), func() (rendered, error) {
			rec, err := h.lookup(cctx, kind, ref)
			if err != nil {
				if isNotFound(err) {
					return rendered{}, NotFound(schema.Label + " not found")
				}
				return rendered{}, err
			}
			if rec.Deleted() || !rec.Published() {
				return rendered{}, NotFound(schema.Label + " not found")
			}
			return render(rec, -1)
		})
	}
}

// Create serves POST /{segment}.
func (h *ContentHandler) Create(kind content.Kind) func(*gin.Context, []string) error {
	schema, _ := content.SchemaFor(kind)

	return func(ctx *gin.Context, _ []string) error {
		body, err := bindBody(ctx)
		if err != nil {
			return err
		}

		in, err := schema.Parse(body, false)
		if err != nil {
			return err
		}

		cctx, cancel := config.WithTimeout(3 * time.Second)
		defer cancel()

		rec, err := h.repo.Create(cctx, content.NewRecord(kind, in, h.now()))
		if err != nil {
			return err
		}

		h.invalidate(ctx, "create", kind, rec)

		ctx.JSON(http.StatusOK, rec)
		return nil
	}
}

// Update serves PUT /{segment}/{id}. The body is merged over the stored
// record; a null field removes it.
func (h *ContentHandler) Update(kind content.Kind) func(*gin.Context, []string) error {
	schema, _ := content.SchemaFor(kind)

	return func(ctx *gin.Context, args []string) error {
		body, err := bindBody(ctx)
		if err != nil {
			return err
		}

		in, err := schema.Parse(body, true)
		if err != nil {
			return err
		}

		cctx, cancel := config.WithTimeout(3 * time.Second)
		defer cancel()

		current, err := h.repo.GetByID(cctx, kind, args[0])
		if err != nil {
			if isNotFound(err) {
				return NotFound(schema.Label + " not found")
			}
			return err
		}
		if current.Deleted() {
			return NotFound(schema.Label + " not found")
		}

		previous := current.Slug

		next := current.Clone()
		next.Apply(in, h.now())

		rec, err := h.repo.Update(cctx, next)
		if err != nil {
			if isNotFound(err) {
				return NotFound(schema.Label + " not found")
			}
			return err
		}

		h.invalidate(ctx, "update", kind, rec, previous)

		ctx.JSON(http.StatusOK, rec)
		return nil
	}
}

// Delete serves DELETE /{segment}/{id}. Deleting twice is not an error and
// keeps the first deletion time.
func (h *ContentHandler) Delete(kind content.Kind) func(*gin.Context, []string) error {
	schema, _ := content.SchemaFor(kind)

	return func(ctx *gin.Context, args []string) error {
		cctx, cancel := config.WithTimeout(3 * time.Second)
		defer cancel()

		rec, err := h.repo.SoftDelete(cctx, kind, args[0], h.now())
		if err != nil {
			if isNotFound(err) {
				return NotFound(schema.Label + " not found")
			}
			return err
		}

		h.invalidate(ctx, "delete", kind, rec)

		ctx.JSON(http.StatusOK, gin.H{"ok": true})
		return nil
	}
}

// Restore serves POST /{segment}/{id}/restore.
func (h *ContentHandler) Restore(kind content.Kind) func(*gin.Context, []string) error {
	schema, _ := content.SchemaFor(kind)

	return func(ctx *gin.Context, args []string) error {
		cctx, cancel := config.WithTimeout(3 * time.Second)
		defer cancel()

		rec, err := h.repo.Restore(cctx, kind, args[0], h.now())
		if err != nil {
			if isNotFound(err) {
				return NotFound(schema.Label + " not found")
			}
			return err
		}

		h.invalidate(ctx, "restore", kind, rec)

		ctx.JSON(http.StatusOK, rec)
		return nil
	}
}

// Purge serves DELETE /{segment}/{id}/purge. Only soft-deleted records
// can be removed for good.
func (h *ContentHandler) Purge(kind content.Kind) func(*gin.Context, []string) error {
	schema, _ := content.SchemaFor(kind)

	return func(ctx *gin.Context, args []string) error {
		cctx, cancel := config.WithTimeout(3 * time.Second)
		defer cancel()

		rec, err := h.repo.GetByID(cctx, kind, args[0])
		if err != nil {
			if isNotFound(err) {
				return NotFound(schema.Label + " not found")
			}
			return err
		}

		if err := h.repo.Purge(cctx, kind, rec.ID); err != nil {
			if isNotFound(err) {
				return NotFound(schema.Label + " not found")
			}
			return err
		}

		actor, _ := actorctx.UserIDFrom(ctx.Request.Context())
		h.log.InfoContext(ctx.Request.Context(), "record purged",
			"kind", kind,
			"id", rec.ID,
			"actor", actor,
		)

		ctx.JSON(http.StatusOK, gin.H{"ok": true})
		return nil
	}
}

func (h *ContentHandler) lookup(ctx context.Context, kind content.Kind, ref string) (content.Record, error) {
	if _, err := uuid.Parse(ref); err == nil {
		rec, err := h.repo.GetByID(ctx, kind, ref)
		if err == nil {
			return rec, nil
		}
		if !isNotFound(err) {
			return content.Record{}, err
		}
		// a slug may look like a uuid
	}
	return h.repo.GetBySlug(ctx, kind, ref)
}

// invalidate covers every segment serving kind, so a services edit also
// refreshes /capabilities.
func (h *ContentHandler) invalidate(ctx *gin.Context, reason string, kind content.Kind, rec content.Record, oldSlugs ...string) {
	var paths []string
	for _, seg := range content.Segments(kind) {
		paths = append(paths, "/"+seg, "/"+seg+"/"+rec.ID)
		if rec.Slug != "" {
			paths = append(paths, "/"+seg+"/"+rec.Slug)
		}
		for _, s := range oldSlugs {
			if s != "" {
				paths = append(paths, "/"+seg+"/"+s)
			}
		}
	}
	h.inv.Invalidate(ctx.Request.Context(), reason, paths...)
}

func queryInt(ctx *gin.Context, name string) (int, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, newValidationError([]FieldError{{
			Field:   name,
			Rule:    "min",
			Param:   "0",
			Message: "must be a non-negative integer",
		}})
	}
	return n, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, content.ErrNotFound)
}
