package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// Tests run in file order; the disabled case must precede InitRegistry.
func TestServerMetricsDisabled(t *testing.T) {
	require.False(t, IsEnabled())

	s := NewServer(ServerConfig{})
	assert.Equal(t, DefaultPort, s.Port())

	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")
}

func TestServerMetricsEnabled(t *testing.T) {
	InitRegistry()
	InitRegistry()
	require.True(t, IsEnabled())

	s := NewServer(ServerConfig{Port: 9191})

	t.Run("metrics", func(t *testing.T) {
		rec := get(t, s.Handler(), "/metrics")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "go_goroutines")
	})

	t.Run("index", func(t *testing.T) {
		rec := get(t, s.Handler(), "/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), ":9191/metrics")
	})

	t.Run("unknown path", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/nope").Code)
	})
}

func TestNoopMetrics(t *testing.T) {
	w := NewNoopWebDAVMetrics()
	w.RecordRequestStart("GET")
	w.RecordRequest("GET", 200, time.Millisecond)
	w.RecordBytesTransferred("GET", DirectionOut, 10)
	w.RecordRequestEnd("GET")

	s := NewNoopStoreMetrics()
	s.RecordOperation("memory", "Root", time.Millisecond, nil)
	s.RecordBytes("memory", DirectionIn, 10)
}
