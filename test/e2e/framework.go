package e2e

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/adapter/webdav"
	"github.com/marmos91/dittodav/pkg/server"
	"github.com/marmos91/dittodav/pkg/store"
	"github.com/studio-b12/gowebdav"
)

// TestContext provides a complete testing environment with:
// - A running DittoDAV server on a free port
// - A gowebdav client rooted at the configured prefix
// - Cleanup mechanisms
type TestContext struct {
	T       *testing.T
	Config  *TestConfig
	Server  *server.DittoServer
	Store   store.Store
	Client  *gowebdav.Client
	Port    int
	BaseURL string

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	tempDirs []string
}

// NewTestContext creates a new test environment with the specified
// configuration. It starts the server and connects the client.
func NewTestContext(t *testing.T, config *TestConfig) *TestContext {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	tc := &TestContext{
		T:      t,
		Config: config,
		ctx:    ctx,
		cancel: cancel,
		Port:   findFreePort(t),
	}
	tc.BaseURL = fmt.Sprintf("http://127.0.0.1:%d%s", tc.Port, config.Prefix)

	tc.setupStore()
	tc.startServer()
	tc.connectClient()

	return tc
}

func (tc *TestContext) setupStore() {
	tc.T.Helper()

	st, err := tc.Config.CreateStore(tc.ctx, tc)
	if err != nil {
		tc.T.Fatalf("Failed to create store: %v", err)
	}
	tc.Store = st
}

// startServer starts DittoServer with a single WebDAV adapter
func (tc *TestContext) startServer() {
	tc.T.Helper()

	// Functional tests, not debugging sessions
	logger.SetLevel("ERROR")

	adapter := webdav.New(webdav.WebDAVConfig{
		Enabled:         true,
		Port:            tc.Port,
		Prefixes:        []string{tc.Config.Prefix},
		ShutdownTimeout: 5 * time.Second,
	}, nil)

	tc.Server = server.New(tc.Store, server.WithStopTimeout(5*time.Second))
	if err := tc.Server.AddAdapter(adapter); err != nil {
		tc.T.Fatalf("Failed to add WebDAV adapter: %v", err)
	}

	tc.wg.Add(1)
	go func() {
		defer tc.wg.Done()
		if err := tc.Server.Serve(tc.ctx); err != nil && err != context.Canceled {
			tc.T.Logf("Server error: %v", err)
		}
	}()

	tc.waitForServer()
}

// waitForServer waits for the server to accept connections
func (tc *TestContext) waitForServer() {
	tc.T.Helper()

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			tc.T.Fatal("Timeout waiting for server to start")
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", tc.Port), time.Second)
			if err == nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// connectClient creates the gowebdav client and checks the server answers
// OPTIONS on the prefix
func (tc *TestContext) connectClient() {
	tc.T.Helper()

	tc.Client = gowebdav.NewClient(tc.BaseURL, "", "")
	tc.Client.SetTimeout(30 * time.Second)

	if err := tc.Client.Connect(); err != nil {
		tc.T.Fatalf("Failed to connect WebDAV client: %v", err)
	}
}

// Cleanup stops the server, closes the store and removes temporary
// directories
func (tc *TestContext) Cleanup() {
	tc.T.Helper()

	tc.cancel()
	tc.wg.Wait()

	if tc.Store != nil {
		if err := tc.Store.Close(); err != nil {
			tc.T.Logf("Failed to close store: %v", err)
		}
	}

	for _, dir := range tc.tempDirs {
		_ = os.RemoveAll(dir)
	}
}

// URL returns the absolute URL of a path below the prefix
func (tc *TestContext) URL(path string) string {
	return strings.TrimSuffix(tc.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Do sends a raw request and returns the status code and body. Used for
// the protocol details the gowebdav client hides.
func (tc *TestContext) Do(method, path string, body io.Reader, headers map[string]string) (int, http.Header, []byte) {
	tc.T.Helper()

	req, err := http.NewRequestWithContext(tc.ctx, method, tc.URL(path), body)
	if err != nil {
		tc.T.Fatalf("Failed to build %s request: %v", method, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		tc.T.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		tc.T.Fatalf("Failed to read %s response: %v", method, err)
	}
	return resp.StatusCode, resp.Header, data
}

// CreateTempDir creates a temporary directory removed by Cleanup
func (tc *TestContext) CreateTempDir(prefix string) string {
	tc.T.Helper()

	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		tc.T.Fatalf("Failed to create temp directory: %v", err)
	}
	tc.tempDirs = append(tc.tempDirs, dir)
	return dir
}

// GetConfig returns the test configuration
func (tc *TestContext) GetConfig() *TestConfig {
	return tc.Config
}

// GetPort returns the server port
func (tc *TestContext) GetPort() int {
	return tc.Port
}

// findFreePort finds an available TCP port
func findFreePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer func() { _ = ln.Close() }()

	return ln.Addr().(*net.TCPAddr).Port
}
