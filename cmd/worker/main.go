package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/sitecms/internal/config"
	"github.com/geocoder89/sitecms/internal/observability"
	"github.com/geocoder89/sitecms/internal/queue/redisclient"
	"github.com/geocoder89/sitecms/internal/queue/worker"
	"github.com/geocoder89/sitecms/internal/revalidate"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	if cfg.RedisAddr == "" || cfg.RevalidateWebhook == "" {
		log.Error("REDIS_ADDR and REVALIDATE_WEBHOOK_URL are required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	rdb := redisclient.New(redisclient.FromConfig(cfg, "worker"))
	defer rdb.Close()

	sink := revalidate.NewProtected(
		revalidate.NewWebhook(cfg.RevalidateWebhook, cfg.RevalidateSecret, nil),
		revalidate.ProtectedConfig{
			Name:             "webhook",
			Timeout:          5 * time.Second,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
			HalfOpenMaxCalls: 1,
		},
	)

	w := worker.New(worker.Config{
		MaxAttempts: 5,
		Backoff:     worker.ExponentialBackoff,
	}, revalidate.NewRedisSource(rdb.Raw(), cfg.RevalidateChannel), sink, rdb, observability.NewForwardMetrics(), log)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("worker health server starting", "port", cfg.WorkerHealthPort)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "channel", cfg.RevalidateChannel)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
