package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_LowercaseLogLevelAccepted(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "debug"

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected lowercase level to be accepted, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidStoreType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "postgres"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown store type")
	}
	if !strings.Contains(err.Error(), "Store.Type") {
		t.Errorf("Expected error to name the field, got: %v", err)
	}
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for zero shutdown timeout")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.WebDAV.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for out-of-range port")
	}
}

func TestValidate_NegativeTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.WebDAV.ReadTimeout = -time.Second

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative read timeout")
	}
}

func TestValidate_NoAdapters(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.WebDAV.Enabled = false

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error with no adapters enabled")
	}
	if !strings.Contains(err.Error(), "at least one adapter") {
		t.Errorf("Expected 'at least one adapter' error, got: %v", err)
	}
}

func TestValidate_Prefixes(t *testing.T) {
	tests := []struct {
		name     string
		prefixes []string
		wantErr  string
	}{
		{"root path", []string{"/"}, ""},
		{"path and url", []string{"/dav/", "http://localhost:8080/files/"}, ""},
		{"https url", []string{"HTTPS://example.com/"}, ""},
		{"empty list", []string{}, "Prefixes"},
		{"relative path", []string{"dav/"}, "must be an absolute"},
		{"ftp url", []string{"ftp://example.com/"}, "must be an absolute"},
		{"path without trailing slash", []string{"/dav"}, "must end with /"},
		{"url without trailing slash", []string{"http://localhost:8080/dav"}, "must end with /"},
		{"empty entry", []string{""}, "Prefixes"},
		{"duplicate", []string{"/dav/", "/dav/"}, "duplicate"},
		{"duplicate ignoring case", []string{"/DAV/", "/dav/"}, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Adapters.WebDAV.Prefixes = tt.prefixes

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_MetricsPortConflict(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Metrics.Enabled = true
	cfg.Server.Metrics.Port = cfg.Adapters.WebDAV.Port

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for metrics port conflict")
	}
	if !strings.Contains(err.Error(), "already used") {
		t.Errorf("Expected port conflict error, got: %v", err)
	}
}

func TestValidate_RateLimitWithoutRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.WebDAV.RateLimit.Enabled = true

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for enabled rate limit without a rate")
	}
	if !strings.Contains(err.Error(), "requests_per_second") {
		t.Errorf("Expected requests_per_second error, got: %v", err)
	}
}
