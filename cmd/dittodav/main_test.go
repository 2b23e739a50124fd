package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, newVersionCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "dittodav ")
}

func TestInitThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dittodav.yaml")

	out, err := execute(t, newInitCmd(), "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)

	_, err = execute(t, newInitCmd(), "--config", path)
	require.Error(t, err, "init without --force must not overwrite")

	_, err = execute(t, newInitCmd(), "--config", path, "--force")
	require.NoError(t, err)

	out, err = execute(t, newConfigCmd(), "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "store:    memory")
}

func TestValidateRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: floppy\n"), 0o644))

	_, err := execute(t, newConfigCmd(), "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Store.Type")
}

func TestRunStopsOnCancel(t *testing.T) {
	// A zero port in the file means "use the default", so reserve a free one
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := fmt.Sprintf(`
logging:
  level: ERROR
adapters:
  webdav:
    enabled: true
    port: %d
`, port)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, path) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
