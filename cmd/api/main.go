package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/geocoder89/sitecms/internal/auth"
	"github.com/geocoder89/sitecms/internal/blob"
	"github.com/geocoder89/sitecms/internal/cache"
	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/db"
	httpx "github.com/geocoder89/sitecms/internal/http"
	"github.com/geocoder89/sitecms/internal/http/handlers"
	"github.com/geocoder89/sitecms/internal/observability"
	"github.com/geocoder89/sitecms/internal/queue/redisclient"
	"github.com/geocoder89/sitecms/internal/revalidate"
	"github.com/geocoder89/sitecms/internal/store"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if cfg.InsecureAuthSecret {
		log.Warn("AUTH_SECRET is not set, sessions are signed with the development secret")
	}

	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "sitecms-api", cfg.OTLPEndpoint)
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			tctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(tctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	openCtx, cancelOpen := config.WithTimeout(15 * time.Second)
	raw, err := store.Open(openCtx, cfg, log)
	cancelOpen()
	if err != nil {
		log.Error("storage unavailable", "err", err)
		os.Exit(1)
	}
	backend := store.Instrument(raw, prom)
	defer backend.Close()

	seedCtx, cancelSeed := config.WithTimeout(5 * time.Second)
	if _, err := db.EnsureAdminUser(seedCtx, backend.Users(), cfg, log); err != nil {
		log.Error("admin seed failed", "err", err)
	}
	cancelSeed()

	blobs, err := blob.New(ctx, cfg)
	if err != nil {
		log.Error("blob storage unavailable", "err", err)
		os.Exit(1)
	}
	log.Info("blob storage selected", "store", blobs.Name())

	reval, closeReval := buildRevalidator(cfg, prom, log)
	defer closeReval()

	publicCache := cache.New(cfg.PublicCacheTTL)
	inv := handlers.NewInvalidator(publicCache, reval, log)

	// set up routers with the log
	router, err := httpx.NewRouter(httpx.Deps{
		Config:      cfg,
		Log:         log,
		Backend:     backend,
		Sessions:    auth.NewManager(cfg.AuthSecret, cfg.SessionTTL),
		Blobs:       blobs,
		Cache:       publicCache,
		Invalidator: inv,
		Prom:        prom,
	})
	if err != nil {
		log.Error("router setup failed", "err", err)
		os.Exit(1)
	}

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		// let pending revalidation signals go out before storage closes
		inv.Wait()
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// buildRevalidator fans out to every configured sink. Each sink gets its
// own breaker so a dead webhook does not stall the redis publish.
func buildRevalidator(cfg config.Config, prom *observability.Prom, log *slog.Logger) (revalidate.Revalidator, func()) {
	var (
		sinks   revalidate.Fanout
		closers []func()
	)

	breaker := revalidate.ProtectedConfig{
		Timeout:          3 * time.Second,
		FailureThreshold: 3,
		Cooldown:         15 * time.Second,
		HalfOpenMaxCalls: 1,
	}

	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.FromConfig(cfg, "api"))
		closers = append(closers, func() { _ = rdb.Close() })

		pub := revalidate.NewRedisPublisher(rdb.Raw(), cfg.RevalidateChannel)
		sinks = append(sinks, revalidate.NewObserved("redis", revalidate.NewProtected(pub, named(breaker, "redis")), prom))
		log.Info("revalidation sink enabled", "sink", "redis", "channel", cfg.RevalidateChannel)
	}

	// with redis configured the worker owns webhook delivery
	if cfg.RevalidateWebhook != "" && cfg.RedisAddr == "" {
		hook := revalidate.NewWebhook(cfg.RevalidateWebhook, cfg.RevalidateSecret, nil)
		sinks = append(sinks, revalidate.NewObserved("webhook", revalidate.NewProtected(hook, named(breaker, "webhook")), prom))
		log.Info("revalidation sink enabled", "sink", "webhook")
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if len(sinks) == 0 {
		return revalidate.NewLogRevalidator(log), closeAll
	}
	return sinks, closeAll
}

func named(cfg revalidate.ProtectedConfig, name string) revalidate.ProtectedConfig {
	cfg.Name = name
	return cfg
}
