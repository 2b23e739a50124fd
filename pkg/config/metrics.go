package config

import (
	"github.com/marmos91/dittodav/pkg/metrics"
	promMetrics "github.com/marmos91/dittodav/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// WebDAVMetrics collects request metrics (never nil, no-op if disabled)
	WebDAVMetrics metrics.WebDAVMetrics

	// StoreMetrics collects store operation metrics (never nil, no-op if disabled)
	StoreMetrics metrics.StoreMetrics
}

// InitializeMetrics creates the metrics components described by cfg.
//
// When metrics are enabled the global Prometheus registry is initialized
// and Prometheus-backed collectors are returned together with the HTTP
// server. Otherwise the server is nil and the collectors are no-ops.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			WebDAVMetrics: metrics.NewNoopWebDAVMetrics(),
			StoreMetrics:  metrics.NewNoopStoreMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Server.Metrics.Port,
		}),
		WebDAVMetrics: promMetrics.NewWebDAVMetrics(),
		StoreMetrics:  promMetrics.NewStoreMetrics(),
	}
}
