// Package metrics exposes Prometheus metrics for search, indexing and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "iftaa"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	searchRequests   *prometheus.CounterVec
	strategyFailures *prometheus.CounterVec
	fastPath         prometheus.Counter
	searchDuration   prometheus.Histogram
	candidates       prometheus.Histogram
	indexed          *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search requests by outcome.",
		}, []string{"outcome"}),
		strategyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "strategy_failures_total",
			Help:      "Retrieval strategy failures by strategy.",
		}, []string{"strategy"}),
		fastPath: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "fast_path_total",
			Help:      "Searches answered by the exact-phrase fast path.",
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "candidates",
			Help:      "Merged candidate count per search.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 300, 1000},
		}),
		indexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "fatwas_total",
			Help:      "Fatwas processed by the indexer by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "HTTP requests currently being served.",
		}),
	}
	m.registry.MustRegister(
		m.searchRequests, m.strategyFailures, m.fastPath, m.searchDuration, m.candidates,
		m.indexed, m.httpRequests, m.httpDuration, m.httpInFlight,
	)
	return m
}

// SearchCompleted records one finished search.
func (m *Metrics) SearchCompleted(outcome string, fastPath bool, candidates int, elapsed time.Duration) {
	m.searchRequests.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(elapsed.Seconds())
	if fastPath {
		m.fastPath.Inc()
	}
	if outcome == "ok" {
		m.candidates.Observe(float64(candidates))
	}
}

// StrategyFailed records a failed retrieval strategy.
func (m *Metrics) StrategyFailed(strategy string) {
	m.strategyFailures.WithLabelValues(strategy).Inc()
}

// FatwasIndexed records indexer results.
func (m *Metrics) FatwasIndexed(ok, failed int) {
	if ok > 0 {
		m.indexed.WithLabelValues("ok").Add(float64(ok))
	}
	if failed > 0 {
		m.indexed.WithLabelValues("failed").Add(float64(failed))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count, latency and in-flight requests. Routes are
// labelled by their chi pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
