package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/dittodav/pkg/adapter/webdav"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tags cover field ranges and enumerations; validateCustomRules covers
// cross-field rules. Log levels are accepted in either case here and
// normalized by ApplyDefaults.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

// validateCustomRules performs validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.WebDAV.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	prefixes := cfg.Adapters.WebDAV.Prefixes
	if len(prefixes) == 0 {
		return fmt.Errorf("adapters.webdav.prefixes: at least one prefix must be configured")
	}

	seen := make(map[string]int, len(prefixes))
	for i, p := range prefixes {
		if err := webdav.ValidatePrefix(p); err != nil {
			return fmt.Errorf("adapters.webdav.prefixes[%d]: %w", i, err)
		}
		key := strings.ToLower(p)
		if first, dup := seen[key]; dup {
			return fmt.Errorf("adapters.webdav.prefixes[%d]: duplicate of prefixes[%d] %q", i, first, prefixes[first])
		}
		seen[key] = i
	}

	if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == cfg.Adapters.WebDAV.Port {
		return fmt.Errorf("server.metrics.port: %d is already used by the webdav adapter", cfg.Server.Metrics.Port)
	}

	if rl := cfg.Adapters.WebDAV.RateLimit; rl.Enabled && rl.RequestsPerSecond == 0 {
		return fmt.Errorf("rate_limit: requests_per_second must be > 0 when enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
