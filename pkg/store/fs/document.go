package fs

import (
	"context"
	"io"
	"os"

	"github.com/marmos91/dittodav/pkg/store"
)

// document is a regular file.
type document struct {
	entry
}

func (d *document) Size() int64 {
	return d.info.Size()
}

func (d *document) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := d.store.fs.Open(d.path)
	if err != nil {
		return nil, mapError(err, d.path)
	}
	return f, nil
}

// OpenWrite opens the file for writing. Without append the file is
// truncated first; bytes written become visible as they are flushed.
func (d *document) OpenWrite(ctx context.Context, append bool) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flags := os.O_WRONLY | os.O_TRUNC
	if append {
		flags = os.O_WRONLY | os.O_APPEND
	}

	f, err := d.store.fs.OpenFile(d.path, flags, 0644)
	if err != nil {
		return nil, mapError(err, d.path)
	}
	return &fileWriter{f: f, path: d.path}, nil
}

// fileWriter maps write errors to store errors.
type fileWriter struct {
	f    io.WriteCloser
	path string
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, mapError(err, w.path)
	}
	return n, nil
}

func (w *fileWriter) Close() error {
	return mapError(w.f.Close(), w.path)
}

var _ store.Document = (*document)(nil)
var _ store.Collection = (*collection)(nil)
var _ store.Store = (*FSStore)(nil)
