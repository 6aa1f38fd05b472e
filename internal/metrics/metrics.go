// Package metrics provides Prometheus metrics for the artistlink engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
	OutcomeTimeout  = "timeout"
)

// Manager owns every collector. A nil *Manager is valid and records nothing,
// so components can run without metrics in tests.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	adapterCalls    *prometheus.CounterVec
	adapterLatency  *prometheus.HistogramVec
	fanOutFailures  *prometheus.CounterVec
	matcherCalls    *prometheus.CounterVec
	matcherLatency  prometheus.Histogram
	scoresComputed  prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the namespace prefix of every metric.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets the latency buckets, in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry registers the collectors on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewManager creates a Manager with its own registry unless one is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "artistlink",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.adapterCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "adapter",
		Name:      "calls_total",
		Help:      "Platform adapter calls by platform, operation and outcome.",
	}, []string{"platform", "operation", "outcome"})

	m.adapterLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "adapter",
		Name:      "call_duration_seconds",
		Help:      "Platform adapter call latency.",
		Buckets:   m.histogramBuckets,
	}, []string{"platform", "operation"})

	m.fanOutFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "resolve",
		Name:      "fanout_failures_total",
		Help:      "Searches that failed during a cross-platform fan-out and were treated as empty.",
	}, []string{"platform"})

	m.matcherCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "matcher",
		Name:      "calls_total",
		Help:      "Identity matcher calls by outcome.",
	}, []string{"outcome"})

	m.matcherLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "matcher",
		Name:      "call_duration_seconds",
		Help:      "Identity matcher latency.",
		Buckets:   m.histogramBuckets,
	})

	m.scoresComputed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "popularity",
		Name:      "scores_total",
		Help:      "Unified popularity scores computed.",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	m.httpRequestTime = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   m.histogramBuckets,
	}, []string{"method", "route"})
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAdapterCall records one adapter call.
func (m *Manager) ObserveAdapterCall(platform, operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.adapterCalls.WithLabelValues(platform, operation, outcome).Inc()
	m.adapterLatency.WithLabelValues(platform, operation).Observe(d.Seconds())
}

// IncFanOutFailure records a search dropped from a fan-out.
func (m *Manager) IncFanOutFailure(platform string) {
	if m == nil {
		return
	}
	m.fanOutFailures.WithLabelValues(platform).Inc()
}

// ObserveMatcher records one matcher call.
func (m *Manager) ObserveMatcher(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.matcherCalls.WithLabelValues(outcome).Inc()
	m.matcherLatency.Observe(d.Seconds())
}

// IncScores records a computed popularity score.
func (m *Manager) IncScores() {
	if m == nil {
		return
	}
	m.scoresComputed.Inc()
}

// ObserveHTTPRequest records one served request. route is the matched mux
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Manager) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestTime.WithLabelValues(method, route).Observe(d.Seconds())
}
