package worker

import (
	"context"
	"time"

	"github.com/geocoder89/sitecms/internal/revalidate"
)

// handle forwards one message, retrying with backoff. It reports whether
// the signal reached the sink.
func (w *Worker) handle(ctx context.Context, msg []byte) bool {
	w.metrics.IncReceived()

	sig, err := revalidate.Decode(msg)
	if err != nil {
		w.metrics.IncDropped()
		w.log.Warn("dropping malformed signal", "err", err)
		return false
	}

	start := time.Now()
	defer func() { w.metrics.ObserveDuration(time.Since(start)) }()

	for attempt := 0; attempt < w.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			w.metrics.IncRetried()

			select {
			case <-ctx.Done():
				w.metrics.IncFailed()
				return false
			case <-time.After(w.cfg.Backoff(attempt - 1)):
			}
		}

		err = w.sink.Revalidate(ctx, sig)
		if err == nil {
			w.metrics.IncForwarded()
			return true
		}

		w.log.Warn("forward failed",
			"attempt", attempt+1,
			"paths", sig.Paths,
			"err", err,
		)
	}

	w.metrics.IncFailed()
	w.log.Error("giving up on signal", "paths", sig.Paths, "err", err)
	return false
}
