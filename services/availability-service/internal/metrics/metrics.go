package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cabook"

// Metrics groups the availability service's collectors. All methods are safe on a nil receiver.
type Metrics struct {
	reg            prometheus.Gatherer
	computations   *prometheus.CounterVec
	computeLatency prometheus.Histogram
	sourceFetches  *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	staleDiscarded prometheus.Counter
	invalidations  *prometheus.CounterVec
	liveSessions   prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// New registers on reg; nil means the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "slot_computations_total",
			Help:      "Slot computations by outcome (open, closed, unavailable, error)",
		}, []string{"result"}),
		computeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "slot_computation_seconds",
			Help:      "Time spent loading a snapshot and generating slots",
			Buckets:   prometheus.DefBuckets,
		}),
		sourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "source_fetches_total",
			Help:      "Snapshot source fetches by source and outcome",
		}, []string{"source", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Redis snapshot cache lookups by kind and result (hit, miss, error)",
		}, []string{"kind", "result"}),
		staleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "stale_selections_discarded_total",
			Help:      "Results dropped because a newer selection superseded them",
		}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "invalidations_total",
			Help:      "Cache invalidations triggered by events or admin calls",
		}, []string{"kind"}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "sessions",
			Help:      "Open live slot sessions",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	m.reg = prometheus.DefaultGatherer
	if reg != nil {
		registerer = reg
		m.reg = reg
	}
	registerer.MustRegister(
		m.computations, m.computeLatency, m.sourceFetches, m.cacheLookups,
		m.staleDiscarded, m.invalidations, m.liveSessions, m.httpRequests, m.httpLatency,
	)
	return m
}

// Handler serves the registry this Metrics was registered on.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveComputation(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.computations.WithLabelValues(result).Inc()
	m.computeLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveFetch(source string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.sourceFetches.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveCache(kind, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) StaleDiscarded() {
	if m == nil {
		return
	}
	m.staleDiscarded.Inc()
}

func (m *Metrics) Invalidated(kind string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(kind).Inc()
}

func (m *Metrics) LiveSessionOpened() {
	if m == nil {
		return
	}
	m.liveSessions.Inc()
}

func (m *Metrics) LiveSessionClosed() {
	if m == nil {
		return
	}
	m.liveSessions.Dec()
}

// ObserveHTTP matches the httpx access log observer signature via a closure in main.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
