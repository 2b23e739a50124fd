package e2e

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/marmos91/dittodav/pkg/store"
	"github.com/marmos91/dittodav/pkg/store/badger"
	"github.com/marmos91/dittodav/pkg/store/fs"
	"github.com/marmos91/dittodav/pkg/store/memory"
	"github.com/marmos91/dittodav/pkg/store/s3"
)

// StoreType represents the store backend behind the server under test
type StoreType string

const (
	StoreMemory     StoreType = "memory"
	StoreFilesystem StoreType = "filesystem"
	StoreBadger     StoreType = "badger"
	StoreS3         StoreType = "s3"
)

// TestContextProvider is an interface for providing test context dependencies
type TestContextProvider interface {
	CreateTempDir(prefix string) string
	GetConfig() *TestConfig
	GetPort() int
}

// TestConfig holds the configuration for a test run
type TestConfig struct {
	Name  string
	Store StoreType

	// Prefix is the server root the client talks to
	Prefix string

	// S3-specific fields (set by SetupS3Config)
	s3Endpoint string
	s3Bucket   string
}

// String returns a string representation of the configuration
func (tc *TestConfig) String() string {
	return fmt.Sprintf("%s%s", tc.Store, tc.Prefix)
}

// CreateStore creates the store described by the configuration
func (tc *TestConfig) CreateStore(ctx context.Context, testCtx TestContextProvider) (store.Store, error) {
	switch tc.Store {
	case StoreMemory:
		return memory.NewMemoryStore(ctx, memory.MemoryStoreConfig{})

	case StoreFilesystem:
		return fs.NewFSStore(ctx, fs.FSStoreConfig{
			Path: testCtx.CreateTempDir("dittodav-fs-*"),
		})

	case StoreBadger:
		dbPath := filepath.Join(testCtx.CreateTempDir("dittodav-badger-*"), "store.db")
		st, err := badger.NewBadgerStore(ctx, badger.BadgerStoreConfig{DBPath: dbPath})
		if err != nil {
			return nil, fmt.Errorf("failed to create badger store: %w", err)
		}
		return st, nil

	case StoreS3:
		if tc.s3Bucket == "" {
			return nil, fmt.Errorf("S3 bucket not initialized (localstack not running?)")
		}
		st, err := s3.NewS3Store(ctx, s3.S3StoreConfig{
			Endpoint:        tc.s3Endpoint,
			Region:          "us-east-1",
			Bucket:          tc.s3Bucket,
			AccessKeyID:     "test",
			SecretAccessKey: "test",
			KeyPrefix:       fmt.Sprintf("e2e-%d/", testCtx.GetPort()),
			ForcePathStyle:  true,
			PartSize:        5 * 1024 * 1024,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 store: %w", err)
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unknown store type: %s", tc.Store)
	}
}

// AllConfigurations returns all test configurations that need no external
// services
func AllConfigurations() []*TestConfig {
	return []*TestConfig{
		{Name: "memory", Store: StoreMemory, Prefix: "/"},
		{Name: "memory-prefixed", Store: StoreMemory, Prefix: "/dav/"},
		{Name: "filesystem", Store: StoreFilesystem, Prefix: "/"},
		{Name: "badger", Store: StoreBadger, Prefix: "/"},
	}
}

// S3Configurations returns configurations that use S3 (requires localstack)
func S3Configurations() []*TestConfig {
	return []*TestConfig{
		{Name: "s3", Store: StoreS3, Prefix: "/"},
	}
}

// GetConfiguration returns a specific configuration by name
func GetConfiguration(name string) *TestConfig {
	for _, config := range append(AllConfigurations(), S3Configurations()...) {
		if config.Name == name {
			return config
		}
	}
	return nil
}
