package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/metrics"
	"github.com/marmos91/dittodav/pkg/store"
	"github.com/marmos91/dittodav/pkg/store/badger"
	"github.com/marmos91/dittodav/pkg/store/fs"
	"github.com/marmos91/dittodav/pkg/store/instrumented"
	"github.com/marmos91/dittodav/pkg/store/memory"
	"github.com/marmos91/dittodav/pkg/store/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateStore creates a document store based on configuration.
//
// The Type field selects the backend; the matching type-specific map is
// decoded into that backend's configuration struct and passed to its
// constructor.
//
// Supported types:
//   - "memory": pkg/store/memory (volatile, for tests and scratch servers)
//   - "filesystem": pkg/store/fs (a directory on local disk)
//   - "badger": pkg/store/badger (embedded key-value database)
//   - "s3": pkg/store/s3 (Amazon S3 or compatible storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Store configuration
//
// Returns:
//   - store.Store: Initialized store; the caller must Close it
//   - error: Configuration or initialization error
func CreateStore(ctx context.Context, cfg *StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryStore(ctx, cfg.Memory)
	case "filesystem":
		return createFilesystemStore(ctx, cfg.Filesystem)
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	case "s3":
		return createS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

// CreateInstrumentedStore is CreateStore with every operation reported to m.
func CreateInstrumentedStore(ctx context.Context, cfg *StoreConfig, m metrics.StoreMetrics) (store.Store, error) {
	st, err := CreateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return instrumented.New(st, cfg.Type, m), nil
}

// decodeOptions decodes a type-specific map into out. Unknown keys are
// rejected so typos surface at startup.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

func createMemoryStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg memory.MemoryStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory store config: %w", err)
	}

	st, err := memory.NewMemoryStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}

	logger.Info("Memory store initialized (max size: %d bytes, 0 = unlimited)", storeCfg.MaxSizeBytes)
	return st, nil
}

func createFilesystemStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg fs.FSStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem store: path is required")
	}

	st, err := fs.NewFSStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}

	logger.Info("Filesystem store initialized: path=%s, read_only=%v", storeCfg.Path, storeCfg.ReadOnly)
	return st, nil
}

func createBadgerStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg badger.BadgerStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger store: db_path is required")
	}

	st, err := badger.NewBadgerStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}
	return st, nil
}

func createS3Store(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg s3.S3StoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	st, err := s3.NewS3Store(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}
	return st, nil
}
