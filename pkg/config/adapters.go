package config

import (
	"fmt"

	"github.com/marmos91/dittodav/pkg/adapter"
	"github.com/marmos91/dittodav/pkg/adapter/webdav"
	"github.com/marmos91/dittodav/pkg/metrics"
)

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// Parameters:
//   - cfg: The complete DittoDAV configuration
//   - webdavMetrics: Optional WebDAV request metrics (nil = no metrics)
//
// Returns:
//   - []adapter.Adapter: Enabled adapters, ready to be added to the server
//   - error: If no adapter is enabled
func CreateAdapters(cfg *Config, webdavMetrics metrics.WebDAVMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.WebDAV.Enabled {
		adapters = append(adapters, webdav.New(cfg.Adapters.WebDAV, webdavMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
