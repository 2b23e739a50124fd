package config

import (
	"testing"
	"time"

	"github.com/marmos91/dittodav/pkg/adapter/webdav"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format text, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output stdout, got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_NormalizesLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "warn"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected WARN, got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if cfg.Server.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Expected metrics port %d, got %d", DefaultMetricsPort, cfg.Server.Metrics.Port)
	}
}

func TestApplyDefaults_Store(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type memory, got %q", cfg.Store.Type)
	}
	if cfg.Store.Filesystem["path"] != "/tmp/dittodav" {
		t.Errorf("Expected sample filesystem path, got %v", cfg.Store.Filesystem["path"])
	}
	if cfg.Store.Badger["db_path"] != "/tmp/dittodav-badger" {
		t.Errorf("Expected sample badger path, got %v", cfg.Store.Badger["db_path"])
	}
}

func TestApplyDefaults_PreservesStoreValues(t *testing.T) {
	cfg := &Config{
		Store: StoreConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{"path": "/data"},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Store.Type != "filesystem" {
		t.Errorf("Store type overwritten: %q", cfg.Store.Type)
	}
	if cfg.Store.Filesystem["path"] != "/data" {
		t.Errorf("Filesystem path overwritten: %v", cfg.Store.Filesystem["path"])
	}
}

func TestApplyDefaults_WebDAV(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	dav := cfg.Adapters.WebDAV
	if !dav.Enabled {
		t.Error("Expected WebDAV enabled when unconfigured")
	}
	if dav.Port != DefaultWebDAVPort {
		t.Errorf("Expected port %d, got %d", DefaultWebDAVPort, dav.Port)
	}
	if len(dav.Prefixes) != 1 || dav.Prefixes[0] != "/" {
		t.Errorf("Expected prefixes [/], got %v", dav.Prefixes)
	}
	if dav.ReadTimeout != 5*time.Minute || dav.WriteTimeout != 5*time.Minute {
		t.Errorf("Unexpected read/write timeouts: %v/%v", dav.ReadTimeout, dav.WriteTimeout)
	}
	if dav.IdleTimeout != 2*time.Minute {
		t.Errorf("Expected idle_timeout 2m, got %v", dav.IdleTimeout)
	}
	if dav.ShutdownTimeout != cfg.Server.ShutdownTimeout {
		t.Errorf("Expected adapter shutdown_timeout to follow server, got %v", dav.ShutdownTimeout)
	}
	if dav.MetricsLogInterval != 5*time.Minute {
		t.Errorf("Expected metrics_log_interval 5m, got %v", dav.MetricsLogInterval)
	}
}

func TestApplyDefaults_ExplicitlyDisabledWebDAV(t *testing.T) {
	cfg := &Config{
		Adapters: AdaptersConfig{
			WebDAV: webdav.WebDAVConfig{Enabled: false, Port: 8080},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Adapters.WebDAV.Enabled {
		t.Error("Explicitly configured adapter should stay disabled")
	}
}

func TestApplyDefaults_ServerRateLimitInherited(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			RateLimit: webdav.RateLimitConfig{Enabled: true, RequestsPerSecond: 50},
		},
	}
	ApplyDefaults(cfg)

	rl := cfg.Adapters.WebDAV.RateLimit
	if !rl.Enabled || rl.RequestsPerSecond != 50 {
		t.Errorf("Expected adapter to inherit server rate limit, got %+v", rl)
	}
	if rl.Burst != 50 {
		t.Errorf("Expected burst to default to requests_per_second, got %d", rl.Burst)
	}
}

func TestApplyDefaults_AdapterRateLimitWins(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			RateLimit: webdav.RateLimitConfig{Enabled: true, RequestsPerSecond: 50},
		},
		Adapters: AdaptersConfig{
			WebDAV: webdav.WebDAVConfig{
				RateLimit: webdav.RateLimitConfig{Enabled: true, RequestsPerSecond: 5, Burst: 1},
			},
		},
	}
	ApplyDefaults(cfg)

	if got := cfg.Adapters.WebDAV.RateLimit.RequestsPerSecond; got != 5 {
		t.Errorf("Expected adapter rate limit 5, got %d", got)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if !cfg.Adapters.WebDAV.Enabled {
		t.Error("Expected WebDAV enabled in default config")
	}
}
