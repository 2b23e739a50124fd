package config

import (
	"strings"
	"time"

	"github.com/marmos91/dittodav/pkg/adapter/webdav"
)

const (
	// DefaultWebDAVPort is the listen port used when none is configured.
	DefaultWebDAVPort = 8080

	// DefaultMetricsPort is the Prometheus endpoint port.
	DefaultMetricsPort = 9090
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit values
// are preserved. Backend-specific defaults beyond the sample values written
// here are handled by the store constructors.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyAdaptersDefaults(&cfg.Adapters, &cfg.Server)
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = cfg.RateLimit.RequestsPerSecond
	}
}

// applyStoreDefaults selects the memory store and fills in sample values
// for every backend so a generated config file documents all of them.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	setDefault(cfg.Memory, "max_size_bytes", uint64(0))
	setDefault(cfg.Filesystem, "path", "/tmp/dittodav")
	setDefault(cfg.Filesystem, "read_only", false)
	setDefault(cfg.Badger, "db_path", "/tmp/dittodav-badger")
	setDefault(cfg.S3, "region", "us-east-1")
	setDefault(cfg.S3, "key_prefix", "")
}

func setDefault(m map[string]any, key string, value any) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

// applyAdaptersDefaults enables WebDAV on port 8080 when the section was left
// unconfigured, and hands the server-wide rate limit to adapters that did not
// set their own.
func applyAdaptersDefaults(cfg *AdaptersConfig, server *ServerConfig) {
	if !cfg.WebDAV.Enabled && cfg.WebDAV.Port == 0 {
		cfg.WebDAV.Enabled = true
	}
	if !cfg.WebDAV.RateLimit.Enabled && server.RateLimit.Enabled {
		cfg.WebDAV.RateLimit = server.RateLimit
	}

	applyWebDAVDefaults(&cfg.WebDAV, server)
}

func applyWebDAVDefaults(cfg *webdav.WebDAVConfig, server *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultWebDAVPort
	}
	if len(cfg.Prefixes) == 0 {
		cfg.Prefixes = []string{"/"}
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = server.ShutdownTimeout
	}
	if cfg.MetricsLogInterval == 0 {
		cfg.MetricsLogInterval = 5 * time.Minute
	}
}

// GetDefaultConfig returns a Config with all default values applied. Used to
// generate the sample configuration file and in tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			WebDAV: webdav.WebDAVConfig{Enabled: true},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
