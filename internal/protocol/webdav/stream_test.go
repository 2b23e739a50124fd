package webdav

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sizeRecorder remembers the largest read requested from it.
type sizeRecorder struct {
	r       io.Reader
	maxRead int
}

func (s *sizeRecorder) Read(p []byte) (int, error) {
	if len(p) > s.maxRead {
		s.maxRead = len(p)
	}
	return s.r.Read(p)
}

func TestCopyChunks(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 2000)

	t.Run("until EOF", func(t *testing.T) {
		src := &sizeRecorder{r: bytes.NewReader(data)}
		var dst bytes.Buffer

		n, err := copyChunks(&dst, src, -1)
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), n)
		assert.Equal(t, data, dst.Bytes())
		assert.Equal(t, chunkSize, src.maxRead)
	})

	t.Run("exact limit", func(t *testing.T) {
		src := &sizeRecorder{r: bytes.NewReader(data)}
		var dst bytes.Buffer

		n, err := copyChunks(&dst, src, 5000)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), n)
		assert.Equal(t, data[:5000], dst.Bytes())
		assert.LessOrEqual(t, src.maxRead, chunkSize)
	})

	t.Run("zero limit reads nothing", func(t *testing.T) {
		src := &sizeRecorder{r: bytes.NewReader(data)}
		n, err := copyChunks(io.Discard, src, 0)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, src.maxRead)
	})

	t.Run("short source", func(t *testing.T) {
		_, err := copyChunks(io.Discard, bytes.NewReader([]byte("abc")), 4)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}
