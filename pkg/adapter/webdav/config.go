package webdav

import (
	"fmt"
	"strings"
	"time"
)

// WebDAVConfig holds configuration parameters for the WebDAV HTTP adapter.
//
// Default values (applied by New if zero):
//   - Port: none; 0 lets the OS pick a free port (pkg/config defaults to 8080)
//   - Prefixes: ["/"]
//   - MaxConnections: 0 (unlimited)
//   - ReadTimeout: 5m (large uploads)
//   - WriteTimeout: 5m (large downloads)
//   - IdleTimeout: 2m
//   - ShutdownTimeout: 30s
//   - MetricsLogInterval: 5m (negative disables)
type WebDAVConfig struct {
	// Enabled controls whether the WebDAV adapter is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port to listen on. 0 selects a free port.
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// Prefixes are the server roots. Each is either an absolute URL
	// ("http://host:8080/dav/") or an absolute path ("/dav/"). The first
	// prefix matching a request URI wins.
	Prefixes []string `mapstructure:"prefixes" yaml:"prefixes" validate:"required,min=1,dive,required"`

	// MaxConnections caps concurrently open client connections. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// ReadTimeout bounds reading a whole request, body included.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing a whole response, body included.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`

	// IdleTimeout closes keep-alive connections idle for longer than this.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout bounds the wait for in-flight requests on shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`

	// AccessLog enables Apache combined access logging: "" disables,
	// "-" writes to stderr, anything else is a file path.
	AccessLog string `mapstructure:"access_log" yaml:"access_log"`

	// MetricsLogInterval is the period of the "active requests" log line.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval"`

	// RateLimit throttles requests with a token bucket.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig configures the request token bucket.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             uint `mapstructure:"burst" yaml:"burst"`
}

// applyDefaults fills in zero values.
func (c *WebDAVConfig) applyDefaults() {
	if len(c.Prefixes) == 0 {
		c.Prefixes = []string{"/"}
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = 5 * time.Minute
	}
}

// validate checks values applyDefaults cannot repair.
func (c *WebDAVConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	for _, p := range c.Prefixes {
		if err := ValidatePrefix(p); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePrefix checks that p is an absolute http(s) URL or starts with "/",
// and that it ends with "/" so it covers whole path segments.
func ValidatePrefix(p string) error {
	lower := strings.ToLower(p)
	switch {
	case strings.HasPrefix(p, "/"):
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
	default:
		return fmt.Errorf("invalid prefix %q: must be an absolute http(s) URL or start with /", p)
	}
	if !strings.HasSuffix(p, "/") {
		return fmt.Errorf("invalid prefix %q: must end with /", p)
	}
	return nil
}
