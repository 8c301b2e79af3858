package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/sitecms/internal/cache"
	"github.com/geocoder89/sitecms/internal/revalidate"
)

// Invalidator drops cached public responses and tells the public site to
// rebuild the affected pages. The cache purge is synchronous; the signal
// is sent in the background and its failure never reaches the caller.
type Invalidator struct {
	cache   *cache.Cache
	reval   revalidate.Revalidator
	log     *slog.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

func NewInvalidator(c *cache.Cache, r revalidate.Revalidator, log *slog.Logger) *Invalidator {
	return &Invalidator{cache: c, reval: r, log: log, timeout: 5 * time.Second}
}

func (inv *Invalidator) Invalidate(ctx context.Context, reason string, paths ...string) {
	if inv == nil {
		return
	}

	sig := revalidate.NewSignal(reason, paths...)
	if len(sig.Paths) == 0 {
		return
	}

	if inv.cache != nil {
		for _, p := range sig.Paths {
			inv.cache.PurgePath(p)
		}
	}

	if inv.reval == nil {
		return
	}

	// the request context ends with the response
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inv.timeout)

	inv.wg.Add(1)
	go func() {
		defer inv.wg.Done()
		defer cancel()

		if err := inv.reval.Revalidate(sendCtx, sig); err != nil {
			inv.log.WarnContext(sendCtx, "revalidation failed",
				"paths", sig.Paths,
				"reason", reason,
				"err", err,
			)
		}
	}()
}

// Wait blocks until in-flight signals finish. Called on shutdown and in tests.
func (inv *Invalidator) Wait() {
	if inv == nil {
		return
	}
	inv.wg.Wait()
}
