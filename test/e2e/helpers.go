package e2e

import (
	"bytes"
	"testing"
)

// runOnAllConfigs is a helper that runs a test on all configurations
func runOnAllConfigs(t *testing.T, testFunc func(t *testing.T, tc *TestContext)) {
	t.Helper()

	for _, config := range AllConfigurations() {
		t.Run(config.Name, func(t *testing.T) {
			tc := NewTestContext(t, config)
			defer tc.Cleanup()

			testFunc(t, tc)
		})
	}
}

// runOnS3Configs runs a test against Localstack, or skips when it is not
// reachable
func runOnS3Configs(t *testing.T, testFunc func(t *testing.T, tc *TestContext)) {
	t.Helper()

	if !CheckLocalstackAvailable(t) {
		t.Skip("Localstack not available, skipping S3 tests")
	}

	helper := NewLocalstackHelper(t)
	defer helper.Cleanup()

	for _, config := range S3Configurations() {
		t.Run(config.Name, func(t *testing.T) {
			SetupS3Config(t, config, helper)

			tc := NewTestContext(t, config)
			defer tc.Cleanup()

			testFunc(t, tc)
		})
	}
}

// patternData returns size bytes of a repeating, position-dependent pattern
// so truncation and reordering are both detectable
func patternData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// assertContent reads path through the client and compares it to want
func assertContent(t *testing.T, tc *TestContext, path string, want []byte) {
	t.Helper()

	got, err := tc.Client.Read(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Content mismatch for %s: got %d bytes, want %d bytes", path, len(got), len(want))
	}
}

// assertStatus sends a raw request and checks its status code
func assertStatus(t *testing.T, tc *TestContext, want int, method, path string, headers map[string]string) {
	t.Helper()

	got, _, body := tc.Do(method, path, nil, headers)
	if got != want {
		t.Fatalf("%s %s: expected status %d, got %d (%s)", method, path, want, got, body)
	}
}
