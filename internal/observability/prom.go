package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitecms"

// RouteNameKey is the gin context key holding the matched API rule name.
const RouteNameKey = "route_name"

type Prom struct {
	gatherer prometheus.Gatherer
	expected []error

	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// storage
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// media
	UploadsTotal *prometheus.CounterVec
	UploadBytes  prometheus.Histogram

	// cache + revalidation
	CacheLookups       *prometheus.CounterVec
	RevalidationsTotal *prometheus.CounterVec
}

// NewProm registers the collectors on reg. When reg is also a Gatherer
// (a *prometheus.Registry) Handler serves exactly that registry.
func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "op_duration_seconds",
				Help:      "Storage operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Storage errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "media",
				Name:      "uploads_total",
				Help:      "Uploaded files by media kind and result.",
			},
			[]string{"kind", "result"},
		),
		UploadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "media",
				Name:      "upload_bytes",
				Help:      "Size of accepted uploads.",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Public response cache lookups by result.",
			},
			[]string{"result"}, // hit|miss
		),
		RevalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "revalidate",
				Name:      "signals_total",
				Help:      "Revalidation signals by sink and result.",
			},
			[]string{"sink", "result"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.UploadsTotal, p.UploadBytes,
		p.CacheLookups, p.RevalidationsTotal,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		p.gatherer = g
	} else {
		p.gatherer = prometheus.DefaultGatherer
	}

	return p
}

func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func (p *Prom) ObserveUpload(kind string, size int64, err error) {
	if err != nil {
		p.UploadsTotal.WithLabelValues(kind, "failed").Inc()
		return
	}
	p.UploadsTotal.WithLabelValues(kind, "ok").Inc()
	p.UploadBytes.Observe(float64(size))
}

func (p *Prom) ObserveCache(hit bool) {
	if hit {
		p.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	p.CacheLookups.WithLabelValues("miss").Inc()
}

func (p *Prom) ObserveRevalidation(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.RevalidationsTotal.WithLabelValues(sink, result).Inc()
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		// the /api catch-all records the dispatched rule name
		if name := ctx.GetString(RouteNameKey); name != "" {
			route = name
		}

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
