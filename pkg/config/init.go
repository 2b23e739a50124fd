package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoDAV Configuration File
#
# Every value can be overridden from the environment with the DITTODAV_
# prefix, dots replaced by underscores (e.g. DITTODAV_LOGGING_LEVEL=DEBUG).
`

// InitConfig writes a sample configuration file to the default location.
//
// Parameters:
//   - force: Overwrite an existing file
//
// Returns:
//   - string: Path of the written file
//   - error: If the file exists and force is false, or on I/O failure
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// field is one key of a generated YAML mapping.
type field struct {
	key     string
	value   any
	comment string
}

// mapping builds a YAML mapping node that keeps fields in the given order.
// Values that are already *yaml.Node are used as is; durations are written
// in their string form so viper and yaml.v3 both read them back.
func mapping(fields ...field) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: f.key, HeadComment: f.comment}

		var value *yaml.Node
		switch v := f.value.(type) {
		case *yaml.Node:
			value = v
		case time.Duration:
			value = &yaml.Node{Kind: yaml.ScalarNode, Value: v.String()}
		default:
			value = &yaml.Node{}
			if err := value.Encode(v); err != nil {
				return nil, fmt.Errorf("failed to encode %s: %w", f.key, err)
			}
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}

// generateYAMLWithComments renders cfg as a commented YAML document.
func generateYAMLWithComments(cfg *Config) (string, error) {
	logging, err := mapping(
		field{"level", cfg.Logging.Level, "DEBUG, INFO, WARN or ERROR"},
		field{"format", cfg.Logging.Format, "text or json"},
		field{"output", cfg.Logging.Output, "stdout, stderr or a file path"},
	)
	if err != nil {
		return "", err
	}

	metricsNode, err := mapping(
		field{"enabled", cfg.Server.Metrics.Enabled, ""},
		field{"port", cfg.Server.Metrics.Port, ""},
	)
	if err != nil {
		return "", err
	}
	rateLimit, err := mapping(
		field{"enabled", cfg.Server.RateLimit.Enabled, ""},
		field{"requests_per_second", cfg.Server.RateLimit.RequestsPerSecond, ""},
		field{"burst", cfg.Server.RateLimit.Burst, "0 = same as requests_per_second"},
	)
	if err != nil {
		return "", err
	}
	server, err := mapping(
		field{"shutdown_timeout", cfg.Server.ShutdownTimeout, "Maximum time to wait for in-flight requests on shutdown"},
		field{"metrics", metricsNode, "Prometheus endpoint, served at :<port>/metrics"},
		field{"rate_limit", rateLimit, "Token bucket applied to every adapter that does not set its own"},
	)
	if err != nil {
		return "", err
	}

	st, err := mapping(
		field{"type", cfg.Store.Type, "memory, filesystem, badger or s3. Only the matching section is read."},
		field{"memory", cfg.Store.Memory, ""},
		field{"filesystem", cfg.Store.Filesystem, ""},
		field{"badger", cfg.Store.Badger, ""},
		field{"s3", cfg.Store.S3, "Also accepts endpoint, bucket, access_key_id, secret_access_key,\nforce_path_style, part_size and max_retries"},
	)
	if err != nil {
		return "", err
	}

	dav := cfg.Adapters.WebDAV
	webdavNode, err := mapping(
		field{"enabled", dav.Enabled, ""},
		field{"port", dav.Port, ""},
		field{"prefixes", dav.Prefixes, "Server roots: absolute URLs (http://host:8080/dav/) or paths (/dav/).\nThe first matching prefix wins."},
		field{"max_connections", dav.MaxConnections, "0 = unlimited"},
		field{"read_timeout", dav.ReadTimeout, ""},
		field{"write_timeout", dav.WriteTimeout, ""},
		field{"idle_timeout", dav.IdleTimeout, ""},
		field{"shutdown_timeout", dav.ShutdownTimeout, ""},
		field{"access_log", dav.AccessLog, "Apache combined access log: empty = off, - = stderr, or a file path"},
		field{"metrics_log_interval", dav.MetricsLogInterval, ""},
	)
	if err != nil {
		return "", err
	}
	adapters, err := mapping(field{"webdav", webdavNode, ""})
	if err != nil {
		return "", err
	}

	root, err := mapping(
		field{"logging", logging, "Logging"},
		field{"server", server, "Server-wide settings"},
		field{"store", st, "Document store"},
		field{"adapters", adapters, "Protocol adapters"},
	)
	if err != nil {
		return "", err
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return configHeader + "\n" + string(out), nil
}
