package http

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/sitecms/internal/auth"
	"github.com/geocoder89/sitecms/internal/blob"
	"github.com/geocoder89/sitecms/internal/cache"
	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/http/dispatch"
	"github.com/geocoder89/sitecms/internal/http/handlers"
	"github.com/geocoder89/sitecms/internal/http/middlewares"
	"github.com/geocoder89/sitecms/internal/observability"
	"github.com/geocoder89/sitecms/internal/store"
)

const serviceName = "sitecms-api"

// Deps are built once in main and shared by every request.
type Deps struct {
	Config      config.Config
	Log         *slog.Logger
	Backend     store.Backend
	Sessions    *auth.Manager
	Blobs       blob.Store
	Cache       *cache.Cache
	Invalidator *handlers.Invalidator
	Prom        *observability.Prom
}

func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(otelgin.Middleware(serviceName))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())

	// health
	ping := func(ctx context.Context) error {
		if d.Backend == nil {
			return nil
		}
		return d.Backend.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// local uploads are served by the API itself
	if local, ok := d.Blobs.(*blob.Local); ok && strings.HasPrefix(d.Config.MediaBaseURL, "/") {
		r.Static(d.Config.MediaBaseURL, local.Dir())
	}

	table, err := buildTable(routeHandlers{
		auth:     handlers.NewAuthHandler(d.Backend.Users(), d.Sessions, d.Config),
		settings: handlers.NewSettingsHandler(d.Backend.Settings(), d.Cache, d.Invalidator),
		media:    handlers.NewMediaHandler(d.Backend.Media(), d.Blobs, d.Prom, d.Log, d.Config.MaxUploadBytes()),
		content:  handlers.NewContentHandler(d.Backend.Content(), d.Cache, d.Invalidator, d.Prom, d.Log),
	})
	if err != nil {
		return nil, err
	}

	dispatcher := dispatch.New(table, dispatch.Config{
		Sessions: d.Sessions,
		Limiter:  middlewares.NewRateLimiter(d.Config.LoginRateLimit, time.Minute),
		LimitKey: middlewares.KeyByIP,
		OnError:  handlers.RespondErr,
		Log:      d.Log,
	})

	api := r.Group("/api")
	api.Use(middlewares.CORSMiddleware(d.Config.CORSOrigins))
	api.Use(middlewares.MaxBodyBytes(d.Config.MaxBodyBytes, d.Config.MaxUploadBytes()))
	api.Any("/*path", dispatcher.Handle)

	return r, nil
}
