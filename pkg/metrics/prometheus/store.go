package prometheus

import (
	"time"

	"github.com/marmos91/dittodav/pkg/metrics"
	"github.com/marmos91/dittodav/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storeMetrics is the Prometheus implementation of metrics.StoreMetrics.
type storeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTotal        *prometheus.CounterVec
}

// NewStoreMetrics creates a Prometheus-backed StoreMetrics registered on the
// global registry, or a no-op implementation when metrics are disabled.
func NewStoreMetrics() metrics.StoreMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopStoreMetrics()
	}
	return newStoreMetrics(metrics.GetRegistry())
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	factory := promauto.With(reg)

	return &storeMetrics{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodav_store_operations_total",
				Help: "Total number of store operations by backend, operation and outcome",
			},
			[]string{"backend", "operation", "outcome"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittodav_store_operation_duration_milliseconds",
				Help:    "Duration of store operations in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"backend", "operation"},
		),
		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodav_store_bytes_total",
				Help: "Total document bytes read from (out) and written to (in) the store",
			},
			[]string{"backend", "direction"},
		),
	}
}

func (m *storeMetrics) RecordOperation(backend string, operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(backend, operation, outcome(err)).Inc()
	m.operationDuration.WithLabelValues(backend, operation).Observe(float64(duration) / float64(time.Millisecond))
}

func (m *storeMetrics) RecordBytes(backend string, direction string, bytes int64) {
	if bytes <= 0 {
		return
	}
	m.bytesTotal.WithLabelValues(backend, direction).Add(float64(bytes))
}

// outcome collapses an error into a low-cardinality label value.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch {
	case store.IsNotFound(err):
		return "not_found"
	case store.IsAccessDenied(err):
		return "access_denied"
	case store.IsAlreadyExists(err):
		return "already_exists"
	case store.IsNotSupported(err):
		return "not_supported"
	}
	return "error"
}
