// Package metrics holds the instrumentation interfaces of DittoDAV, their
// no-op implementations and the process-wide Prometheus registry.
//
// Collection is opt-in. Until InitRegistry runs, the constructors in
// pkg/metrics/prometheus hand back no-op recorders and nothing is exported.
//
// Typical wiring (see pkg/config.InitializeMetrics):
//
//	metrics.InitRegistry()
//	srv := metrics.NewServer(metrics.ServerConfig{Port: 9090})
//	webdavMetrics := prometheus.NewWebDAVMetrics()
//	storeMetrics := prometheus.NewStoreMetrics()
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the shared registry with the Go runtime, process and
// build-info collectors. Calls after the first are no-ops.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
		registry = reg
	})
}

// GetRegistry returns the shared registry, or nil before InitRegistry.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	return GetRegistry() != nil
}
