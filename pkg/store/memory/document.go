package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/marmos91/dittodav/pkg/store"
)

// document is the in-memory store.Document.
type document struct {
	node

	// data is replaced, never mutated in place; guarded by node.mu
	data []byte
}

func (d *document) Size() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return int64(len(d.data))
}

func (d *document) snapshot() ([]byte, time.Time) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data, d.modTime
}

func (d *document) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _ := d.snapshot()
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (d *document) OpenWrite(ctx context.Context, append bool) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &writer{doc: d}
	if append {
		data, _ := d.snapshot()
		w.buf.Write(data)
	}
	return w, nil
}

// writer collects content and commits it to the document on Close.
type writer struct {
	doc    *document
	buf    bytes.Buffer
	closed bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write on closed document stream")
	}
	return w.buf.Write(p)
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	d := w.doc
	next := w.buf.Bytes()

	d.mu.Lock()
	defer d.mu.Unlock()

	delta := int64(len(next) - len(d.data))
	if err := d.store.reserve(delta, d.name); err != nil {
		return err
	}
	d.data = next
	d.modTime = time.Now()
	return nil
}

var _ store.Document = (*document)(nil)
var _ store.Collection = (*collection)(nil)
var _ store.Store = (*MemoryStore)(nil)
