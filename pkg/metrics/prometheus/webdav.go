// Package prometheus provides the Prometheus implementations of the
// pkg/metrics interfaces.
package prometheus

import (
	"strconv"
	"time"

	"github.com/marmos91/dittodav/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// durationBuckets are the request latency buckets in milliseconds.
var durationBuckets = []float64{
	1,     // 1ms
	10,    // 10ms
	100,   // 100ms
	1000,  // 1s
	10000, // 10s
}

// webdavMetrics is the Prometheus implementation of metrics.WebDAVMetrics.
type webdavMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	bytesTransferred *prometheus.CounterVec
}

// NewWebDAVMetrics creates a Prometheus-backed WebDAVMetrics registered on
// the global registry.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewWebDAVMetrics() metrics.WebDAVMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopWebDAVMetrics()
	}
	return newWebDAVMetrics(metrics.GetRegistry())
}

func newWebDAVMetrics(reg prometheus.Registerer) *webdavMetrics {
	factory := promauto.With(reg)

	return &webdavMetrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodav_requests_total",
				Help: "Total number of WebDAV requests by method and final status code",
			},
			[]string{"method", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittodav_request_duration_milliseconds",
				Help:    "Duration of WebDAV requests in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"method"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dittodav_requests_in_flight",
				Help: "Current number of WebDAV requests being processed",
			},
			[]string{"method"},
		),
		bytesTransferred: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodav_bytes_transferred_total",
				Help: "Total entity bytes received (in) and sent (out) by WebDAV requests",
			},
			[]string{"method", "direction"},
		),
	}
}

func (m *webdavMetrics) RecordRequest(method string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(float64(duration) / float64(time.Millisecond))
}

func (m *webdavMetrics) RecordRequestStart(method string) {
	m.requestsInFlight.WithLabelValues(method).Inc()
}

func (m *webdavMetrics) RecordRequestEnd(method string) {
	m.requestsInFlight.WithLabelValues(method).Dec()
}

func (m *webdavMetrics) RecordBytesTransferred(method string, direction string, bytes int64) {
	if bytes <= 0 {
		return
	}
	m.bytesTransferred.WithLabelValues(method, direction).Add(float64(bytes))
}
