package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/worker"
)

// ClickQueue reports the backlog of the click worker pool.
type ClickQueue interface {
	Stats() worker.PoolStats
}

// Metrics owns a private Prometheus registry and the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	linksCreated prometheus.Counter
	redirects    *prometheus.CounterVec
	links        prometheus.Gauge
	clicks       prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		linksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "urlshort_links_created_total",
			Help: "Number of short links created.",
		}),
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "urlshort_redirects_total",
			Help: "Number of redirect lookups by result.",
		}, []string{"result"}),
		links: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "urlshort_links",
			Help: "Number of stored short links.",
		}),
		clicks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "urlshort_clicks",
			Help: "Total clicks persisted across all links.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.linksCreated,
		m.redirects,
		m.links,
		m.clicks,
	)

	return m
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// LinkCreated counts a newly stored link.
func (m *Metrics) LinkCreated() {
	m.linksCreated.Inc()
}

// Redirect counts a redirect lookup outcome.
func (m *Metrics) Redirect(result string) {
	m.redirects.WithLabelValues(result).Inc()
}

// SetStats publishes store-wide counters as gauges.
func (m *Metrics) SetStats(stats model.Stats) {
	m.links.Set(float64(stats.Links))
	m.clicks.Set(float64(stats.Clicks))
}

// WatchClickQueue exposes the click queue depth and capacity, read on scrape.
func (m *Metrics) WatchClickQueue(q ClickQueue) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "urlshort_click_queue_depth",
			Help: "Clicks waiting to be flushed to storage.",
		}, func() float64 { return float64(q.Stats().QueueSize) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "urlshort_click_queue_capacity",
			Help: "Capacity of the click queue.",
		}, func() float64 { return float64(q.Stats().QueueCap) }),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return "unmatched"
}
