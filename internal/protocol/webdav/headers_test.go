package webdav

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerWith(name, value string, present bool) http.Header {
	h := make(http.Header)
	if present {
		h.Set(name, value)
	}
	return h
}

func TestParseDepth(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		present bool
		want    Depth
	}{
		{"missing", "", false, DepthInfinity},
		{"empty", "", true, DepthInfinity},
		{"zero", "0", true, DepthZero},
		{"one", "1", true, DepthOne},
		{"infinity", "infinity", true, DepthInfinity},
		{"two", "2", true, DepthInfinity},
		{"negative", "-1", true, DepthInfinity},
		{"garbage", "deep", true, DepthInfinity},
		{"uppercase infinity", "Infinity", true, DepthInfinity},
		{"padded", " 0", true, DepthInfinity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDepth(headerWith(HeaderDepth, tt.value, tt.present)))
		})
	}
}

func TestDepthString(t *testing.T) {
	assert.Equal(t, "0", DepthZero.String())
	assert.Equal(t, "1", DepthOne.String())
	assert.Equal(t, "infinity", DepthInfinity.String())
}

func TestParseOverwrite(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		present bool
		want    bool
	}{
		{"T", "T", true, true},
		{"missing", "", false, false},
		{"F", "F", true, false},
		{"lowercase t", "t", true, false},
		{"empty", "", true, false},
		{"true", "true", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOverwrite(headerWith(HeaderOverwrite, tt.value, tt.present)))
		})
	}
}

func TestParseDestination(t *testing.T) {
	base, err := url.Parse("http://localhost:8080/dav/a.txt")
	require.NoError(t, err)

	t.Run("missing is conflict", func(t *testing.T) {
		_, err := ParseDestination(make(http.Header), base)
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})

	t.Run("empty is conflict", func(t *testing.T) {
		_, err := ParseDestination(headerWith(HeaderDestination, "", true), base)
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})

	t.Run("invalid is conflict", func(t *testing.T) {
		_, err := ParseDestination(headerWith(HeaderDestination, "http://[::1", true), base)
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})

	t.Run("absolute", func(t *testing.T) {
		dest, err := ParseDestination(headerWith(HeaderDestination, "http://other/dav/b.txt", true), base)
		require.NoError(t, err)
		assert.Equal(t, "http://other/dav/b.txt", dest.String())
	})

	t.Run("relative resolves against request", func(t *testing.T) {
		dest, err := ParseDestination(headerWith(HeaderDestination, "/dav/b%20c.txt", true), base)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/dav/b%20c.txt", dest.String())
	})
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		present bool
		want    string
	}{
		{"missing", "", false, DefaultTimeout},
		{"infinity", "infinity", true, DefaultTimeout},
		{"sentinel", "Infinite, Second-4100000000", true, DefaultTimeout},
		{"seconds pass through", "Second-3600", true, "Second-3600"},
		{"unknown pass through", "Infinite", true, "Infinite"},
		{"garbage pass through", "soon", true, "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTimeout(headerWith(HeaderTimeout, tt.value, tt.present)))
		})
	}
}
