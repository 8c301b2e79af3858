package revalidate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned without calling the sink while the breaker
// is open or its half-open trial slots are taken.
var ErrCircuitOpen = errors.New("circuit breaker open")

type ProtectedConfig struct {
	// Name labels state changes in the log.
	Name             string
	Timeout          time.Duration // hard timeout per send
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

// Protected wraps a sink with a timeout and a circuit breaker so a dead
// downstream fails fast instead of piling up goroutines.
type Protected struct {
	inner   Revalidator
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

func NewProtected(inner Revalidator, cfg ProtectedConfig) *Protected {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	if cfg.Name == "" {
		cfg.Name = "revalidate"
	}

	threshold := uint32(cfg.FailureThreshold)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: uint32(cfg.HalfOpenMaxCalls),
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Default().Warn("revalidation breaker state changed",
				"sink", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Protected{inner: inner, timeout: cfg.Timeout, cb: cb}
}

func (p *Protected) Revalidate(ctx context.Context, sig Signal) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		return nil, p.inner.Revalidate(sendCtx, sig)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State is "closed", "half-open" or "open".
func (p *Protected) State() string {
	return p.cb.State().String()
}
