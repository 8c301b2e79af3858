package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sitecms/internal/actorctx"
	"github.com/geocoder89/sitecms/internal/cache"
	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/domain/settings"
	"github.com/geocoder89/sitecms/internal/store"
)

const settingsPath = "/settings"

type SettingsHandler struct {
	repo  store.SettingsRepository
	cache *cache.Cache
	inv   *Invalidator
}

func NewSettingsHandler(repo store.SettingsRepository, c *cache.Cache, inv *Invalidator) *SettingsHandler {
	return &SettingsHandler{repo: repo, cache: c, inv: inv}
}

func (h *SettingsHandler) Get(ctx *gin.Context, _ []string) error {
	_, authed := actorctx.ClaimsFrom(ctx.Request.Context())

	load := func() (rendered, error) {
		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		doc, err := h.repo.Get(cctx)
		if err != nil {
			return rendered{}, err
		}
		if doc == nil {
			doc = settings.Document{}
		}
		return render(doc, -1)
	}

	if authed {
		r, err := load()
		if err != nil {
			return err
		}
		r.write(ctx, http.StatusOK)
		return nil
	}
	return publicRead(ctx, h.cache, nil, settingsPath, load)
}

func (h *SettingsHandler) Put(ctx *gin.Context, _ []string) error {
	body, err := bindBody(ctx)
	if err != nil {
		return err
	}

	doc := settings.Document(body)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.repo.Put(cctx, doc); err != nil {
		return err
	}

	// brand, navigation and footer show up on every page
	h.inv.Invalidate(ctx.Request.Context(), "settings", "/", settingsPath)

	ctx.JSON(http.StatusOK, doc)
	return nil
}
