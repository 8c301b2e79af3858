package observability

import (
	"sync/atomic"
	"time"
)

// ForwardMetrics counts revalidation messages handled by the worker.
// A snapshot is served on the worker's health endpoint.
type ForwardMetrics struct {
	received  atomic.Uint64
	forwarded atomic.Uint64
	failed    atomic.Uint64
	retried   atomic.Uint64
	dropped   atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewForwardMetrics() *ForwardMetrics {
	return &ForwardMetrics{}
}

func (m *ForwardMetrics) IncReceived()  { m.received.Add(1) }
func (m *ForwardMetrics) IncForwarded() { m.forwarded.Add(1) }
func (m *ForwardMetrics) IncFailed()    { m.failed.Add(1) }
func (m *ForwardMetrics) IncRetried()   { m.retried.Add(1) }
func (m *ForwardMetrics) IncDropped()   { m.dropped.Add(1) }

func (m *ForwardMetrics) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type ForwardSnapshot struct {
	Received        uint64        `json:"received"`
	Forwarded       uint64        `json:"forwarded"`
	Failed          uint64        `json:"failed"`
	Retried         uint64        `json:"retried"`
	Dropped         uint64        `json:"dropped"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`
}

func (m *ForwardMetrics) Snapshot() ForwardSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()

	var avg time.Duration
	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return ForwardSnapshot{
		Received:        m.received.Load(),
		Forwarded:       m.forwarded.Load(),
		Failed:          m.failed.Load(),
		Retried:         m.retried.Load(),
		Dropped:         m.dropped.Load(),
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
	}
}
