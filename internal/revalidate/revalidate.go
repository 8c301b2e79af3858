// Package revalidate tells the public site which paths changed. Sends are
// best effort: callers log failures and never fail the write that caused them.
package revalidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrInvalidSignal = errors.New("invalid revalidation signal")

// Signal lists public paths whose cached pages are stale.
type Signal struct {
	Paths  []string  `json:"paths"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

type Revalidator interface {
	Revalidate(ctx context.Context, sig Signal) error
}

// NewSignal normalises paths: trimmed, leading slash, deduplicated, sorted.
func NewSignal(reason string, paths ...string) Signal {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))

	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)

	return Signal{Paths: out, Reason: reason, At: time.Now().UTC()}
}

func Encode(sig Signal) ([]byte, error) {
	if len(sig.Paths) == 0 {
		return nil, ErrInvalidSignal
	}

	b, err := json.Marshal(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignal, err)
	}
	return b, nil
}

func Decode(b []byte) (Signal, error) {
	if len(b) == 0 {
		return Signal{}, ErrInvalidSignal
	}

	var sig Signal
	if err := json.Unmarshal(b, &sig); err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrInvalidSignal, err)
	}
	if len(sig.Paths) == 0 {
		return Signal{}, ErrInvalidSignal
	}
	return sig, nil
}

// Fanout sends to every sink and joins their errors.
type Fanout []Revalidator

func (f Fanout) Revalidate(ctx context.Context, sig Signal) error {
	var errs []error
	for _, r := range f {
		if err := r.Revalidate(ctx, sig); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a function to Revalidator.
type Func func(ctx context.Context, sig Signal) error

func (fn Func) Revalidate(ctx context.Context, sig Signal) error {
	return fn(ctx, sig)
}
