// Package worker forwards revalidation signals from the broker to the
// public site so the API never waits on a slow downstream.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/sitecms/internal/observability"
	"github.com/geocoder89/sitecms/internal/revalidate"
)

// Source yields raw encoded signals until ctx ends.
type Source interface {
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

type Worker struct {
	cfg     Config
	source  Source
	sink    revalidate.Revalidator
	pinger  Pinger
	metrics *observability.ForwardMetrics
	log     *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, source Source, sink revalidate.Revalidator, pinger Pinger, metrics *observability.ForwardMetrics, log *slog.Logger) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Backoff == nil {
		cfg.Backoff = ExponentialBackoff
	}
	if metrics == nil {
		metrics = observability.NewForwardMetrics()
	}

	return &Worker{
		cfg:     cfg,
		source:  source,
		sink:    sink,
		pinger:  pinger,
		metrics: metrics,
		log:     log,
	}
}

// Run blocks until ctx is cancelled or the source closes.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.source.Subscribe(ctx)
	if err != nil {
		return err
	}

	w.setReady(true)
	defer w.setReady(false)

	w.log.Info("worker subscribed")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				w.log.Warn("worker source closed")
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) Metrics() *observability.ForwardMetrics {
	return w.metrics
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}
