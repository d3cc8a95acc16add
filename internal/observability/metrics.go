package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
	ErrorsTotal            *prometheus.CounterVec
	ClassifierCalls        *prometheus.CounterVec
	ClassifierConfidence   prometheus.Histogram
	SnapshotWrites         prometheus.Counter
	SnapshotWriteFailures  prometheus.Counter
	RoutingDecisions       *prometheus.CounterVec
	ClassifyCacheHits      prometheus.Counter
	ClassifyCacheMisses    prometheus.Counter
	NotificationsPublished prometheus.Counter
}

// RecordError increments the error counter for one handled request.
func (m *Metrics) RecordError(path, method, code string) {
	m.ErrorsTotal.WithLabelValues(path, method, code).Inc()
}

// NewMetrics registers collectors against the provided registerer; pass nil
// to use the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_http_requests_total",
			Help: "Total HTTP requests handled",
		}, []string{"path", "method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedback_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"path", "method"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_errors_total",
			Help: "Total errors returned to callers",
		}, []string{"path", "method", "code"}),
		ClassifierCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_classifier_calls_total",
			Help: "External classifier calls by outcome",
		}, []string{"outcome"}),
		ClassifierConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedback_classifier_confidence",
			Help:    "Final blended classification confidence",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		SnapshotWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedback_snapshot_writes_total",
			Help: "Total snapshot writes attempted",
		}),
		SnapshotWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedback_snapshot_write_failures_total",
			Help: "Snapshot writes that failed and fell back to in-memory state",
		}),
		RoutingDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_routing_decisions_total",
			Help: "Automatic routing decisions by rule",
		}, []string{"rule"}),
		ClassifyCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedback_classify_cache_hits_total",
			Help: "Classification cache hits",
		}),
		ClassifyCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedback_classify_cache_misses_total",
			Help: "Classification cache misses",
		}),
		NotificationsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedback_notifications_published_total",
			Help: "Notification entities created from domain events",
		}),
	}
}
