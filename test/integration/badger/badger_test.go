//go:build integration

package badger_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/adapter/webdav"
	"github.com/marmos91/dittodav/pkg/config"
	"github.com/marmos91/dittodav/pkg/server"
	"github.com/studio-b12/gowebdav"
)

// TestBadgerStore_Integration checks that documents written through WebDAV
// survive a full server restart on the same BadgerDB directory.
//
// Prerequisites:
//   - None (BadgerDB is embedded, no external services needed)
//   - Run with: go test -tags=integration ./test/integration/badger/...
//
// The store is built through the configuration layer, the same way the
// dittodav binary builds it, so option decoding is covered as well.
func TestBadgerStore_Integration(t *testing.T) {
	logger.SetLevel("ERROR")

	tempDir, err := os.MkdirTemp("", "dittodav-badger-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	storeCfg := &config.StoreConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path":             filepath.Join(tempDir, "store.db"),
			"block_cache_size_mb": "16",
		},
	}

	payload := make([]byte, 3*1024*1024+11)
	for i := range payload {
		payload[i] = byte(i % 253)
	}

	// Phase 1: write a small tree, then stop the server and close the store
	runServer(t, storeCfg, func(client *gowebdav.Client) {
		if err := client.Mkdir("projects", 0755); err != nil {
			t.Fatalf("Failed to create collection: %v", err)
		}
		if err := client.Mkdir("projects/alpha", 0755); err != nil {
			t.Fatalf("Failed to create nested collection: %v", err)
		}
		if err := client.Write("projects/alpha/data.bin", payload, 0644); err != nil {
			t.Fatalf("Failed to write document: %v", err)
		}
		if err := client.Write("projects/readme.txt", []byte("persist me"), 0644); err != nil {
			t.Fatalf("Failed to write document: %v", err)
		}
		if err := client.Write("scratch.txt", []byte("temporary"), 0644); err != nil {
			t.Fatalf("Failed to write document: %v", err)
		}
		if err := client.Remove("scratch.txt"); err != nil {
			t.Fatalf("Failed to delete document: %v", err)
		}
	})

	// Phase 2: reopen and verify
	runServer(t, storeCfg, func(client *gowebdav.Client) {
		got, err := client.Read("projects/alpha/data.bin")
		if err != nil {
			t.Fatalf("Failed to read document after restart: %v", err)
		}
		if len(got) != len(payload) {
			t.Fatalf("Size mismatch after restart: got %d, want %d", len(got), len(payload))
		}
		for i := range got {
			if got[i] != payload[i] {
				t.Fatalf("Content mismatch after restart at offset %d", i)
			}
		}

		readme, err := client.Read("projects/readme.txt")
		if err != nil {
			t.Fatalf("Failed to read readme after restart: %v", err)
		}
		if string(readme) != "persist me" {
			t.Errorf("Unexpected readme content: %q", readme)
		}

		if _, err := client.Read("scratch.txt"); !gowebdav.IsErrNotFound(err) {
			t.Errorf("Deleted document came back after restart: %v", err)
		}
	})

	// Phase 3: move the tree and verify the new layout is what persists
	runServer(t, storeCfg, func(client *gowebdav.Client) {
		if err := client.Rename("projects", "archive", false); err != nil {
			t.Fatalf("Failed to move collection: %v", err)
		}
	})

	runServer(t, storeCfg, func(client *gowebdav.Client) {
		if _, err := client.Read("archive/readme.txt"); err != nil {
			t.Fatalf("Moved document missing after restart: %v", err)
		}
		if _, err := client.Read("projects/readme.txt"); !gowebdav.IsErrNotFound(err) {
			t.Errorf("Old location still readable after restart: %v", err)
		}
	})
}

// runServer opens the store, serves it over WebDAV on a free port, runs fn
// with a connected client and shuts everything down again.
func runServer(t *testing.T, storeCfg *config.StoreConfig, fn func(client *gowebdav.Client)) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := config.CreateStore(ctx, storeCfg)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	port := freePort(t)
	srv := server.New(st, server.WithStopTimeout(5*time.Second))
	adapter := webdav.New(webdav.WebDAVConfig{
		Enabled:         true,
		Port:            port,
		Prefixes:        []string{"/"},
		ShutdownTimeout: 5 * time.Second,
	}, nil)
	if err := srv.AddAdapter(adapter); err != nil {
		t.Fatalf("Failed to add adapter: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client := gowebdav.NewClient(fmt.Sprintf("http://127.0.0.1:%d/", port), "", "")
	client.SetTimeout(30 * time.Second)

	deadline := time.Now().Add(10 * time.Second)
	for {
		if err := client.Connect(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timeout waiting for server to start")
		}
		time.Sleep(50 * time.Millisecond)
	}

	fn(client)

	cancel()
	if err := <-done; err != nil && err != context.Canceled {
		t.Errorf("Server error: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
