package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/geocoder89/sitecms/internal/actorctx"
	"github.com/geocoder89/sitecms/internal/auth"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&pgconn.PgError{Code: "23505"}, "unique_violation"},
		{&pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("connection refused"), "connection"},
		{errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		if got := classifyDBErr(tt.err); got != tt.want {
			t.Fatalf("classifyDBErr(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserveDB_ExpectedErrorsAreNotFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm(reg)

	notFound := errors.New("not found")
	p.ExpectErrors(notFound)

	_ = p.ObserveDB("content.get", func() error { return notFound })
	_ = p.ObserveDB("content.get", func() error { return errors.New("boom") })

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var total float64
	for _, mf := range families {
		if mf.GetName() != "sitecms_store_errors_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	if total != 1 {
		t.Fatalf("errors_total = %v, want 1", total)
	}
}

func TestForwardMetrics_Snapshot(t *testing.T) {
	m := NewForwardMetrics()
	m.IncReceived()
	m.IncForwarded()
	m.ObserveDuration(10 * time.Millisecond)
	m.ObserveDuration(30 * time.Millisecond)

	s := m.Snapshot()
	if s.Received != 1 || s.Forwarded != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.AverageDuration != 20*time.Millisecond || s.MaxDuration != 30*time.Millisecond {
		t.Fatalf("unexpected durations: %+v", s)
	}
}

func TestLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("prod", &buf)

	log.Debug("hidden")
	log.Info("shown", "k", "v")

	out := buf.String()
	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Fatalf("debug line should be filtered in prod: %s", out)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"k":"v"`)) {
		t.Fatalf("expected structured attrs, got %s", out)
	}
}

func TestLogger_StampsRequestContext(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("prod", &buf)

	ctx := WithRequestID(context.Background(), "req-42")
	ctx = actorctx.WithClaims(ctx, &auth.Claims{UserID: "u-7"})
	log.InfoContext(ctx, "record purged")

	for _, want := range []string{`"request_id":"req-42"`, `"user_id":"u-7"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("missing %s in %s", want, buf.String())
		}
	}

	buf.Reset()
	log.Info("startup")
	if bytes.Contains(buf.Bytes(), []byte("request_id")) {
		t.Fatalf("no request id outside a request: %s", buf.String())
	}
}
