// Package instrumented wraps any store.Store and reports every operation to a
// metrics.StoreMetrics.
//
// Items handed out by the wrapper are themselves wrapped. Items passed back in
// (Delete, CopyItemHere, MoveItemHere) are unwrapped before they reach the
// backend, so backends keep recognising their own items.
package instrumented

import (
	"context"
	"io"
	"time"

	"github.com/marmos91/dittodav/pkg/metrics"
	"github.com/marmos91/dittodav/pkg/store"
)

// Store is a store.Store decorator recording per-operation metrics.
type Store struct {
	inner   store.Store
	backend string
	m       metrics.StoreMetrics
}

// New wraps inner. backend labels every recorded sample (e.g. "badger").
// A nil m selects the no-op implementation.
func New(inner store.Store, backend string, m metrics.StoreMetrics) *Store {
	if m == nil {
		m = metrics.NewNoopStoreMetrics()
	}
	return &Store{inner: inner, backend: backend, m: m}
}

// Unwrap returns the wrapped store.
func (s *Store) Unwrap() store.Store {
	return s.inner
}

func (s *Store) Root(ctx context.Context) (store.Collection, error) {
	start := time.Now()
	root, err := s.inner.Root(ctx)
	s.observe("Root", start, err)
	if err != nil {
		return nil, err
	}
	return &collection{Collection: root, s: s}, nil
}

func (s *Store) Close() error {
	return s.inner.Close()
}

func (s *Store) observe(op string, start time.Time, err error) {
	s.m.RecordOperation(s.backend, op, time.Since(start), err)
}

func (s *Store) wrap(it store.Item) store.Item {
	switch v := it.(type) {
	case store.Collection:
		return &collection{Collection: v, s: s}
	case store.Document:
		return &document{Document: v, s: s}
	}
	return it
}

// unwrap strips the wrapper from items produced by this package.
func unwrap(it store.Item) store.Item {
	switch v := it.(type) {
	case *collection:
		return v.Collection
	case *document:
		return v.Document
	}
	return it
}

type collection struct {
	store.Collection
	s *Store
}

func (c *collection) Child(ctx context.Context, name string) (store.Item, error) {
	start := time.Now()
	it, err := c.Collection.Child(ctx, name)
	c.s.observe("Child", start, err)
	if err != nil {
		return nil, err
	}
	return c.s.wrap(it), nil
}

func (c *collection) Children(ctx context.Context) ([]store.Item, error) {
	start := time.Now()
	items, err := c.Collection.Children(ctx)
	c.s.observe("Children", start, err)
	if err != nil {
		return nil, err
	}
	for i, it := range items {
		items[i] = c.s.wrap(it)
	}
	return items, nil
}

func (c *collection) CreateCollection(ctx context.Context, name string) (store.Collection, error) {
	start := time.Now()
	col, err := c.Collection.CreateCollection(ctx, name)
	c.s.observe("CreateCollection", start, err)
	if err != nil {
		return nil, err
	}
	return &collection{Collection: col, s: c.s}, nil
}

func (c *collection) CreateDocument(ctx context.Context, name string) (store.Document, error) {
	start := time.Now()
	doc, err := c.Collection.CreateDocument(ctx, name)
	c.s.observe("CreateDocument", start, err)
	if err != nil {
		return nil, err
	}
	return &document{Document: doc, s: c.s}, nil
}

func (c *collection) Delete(ctx context.Context, it store.Item) error {
	start := time.Now()
	err := c.Collection.Delete(ctx, unwrap(it))
	c.s.observe("Delete", start, err)
	return err
}

func (c *collection) CopyItemHere(ctx context.Context, src store.Item, name string, deep bool) error {
	start := time.Now()
	err := c.Collection.CopyItemHere(ctx, unwrap(src), name, deep)
	c.s.observe("CopyItemHere", start, err)
	return err
}

func (c *collection) MoveItemHere(ctx context.Context, src store.Item, name string) error {
	start := time.Now()
	err := c.Collection.MoveItemHere(ctx, unwrap(src), name)
	c.s.observe("MoveItemHere", start, err)
	return err
}

type document struct {
	store.Document
	s *Store
}

func (d *document) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	start := time.Now()
	r, err := d.Document.OpenRead(ctx)
	d.s.observe("OpenRead", start, err)
	if err != nil {
		return nil, err
	}
	return &countingReader{ReadCloser: r, done: func(n int64) {
		d.s.m.RecordBytes(d.s.backend, metrics.DirectionOut, n)
	}}, nil
}

func (d *document) OpenWrite(ctx context.Context, append bool) (io.WriteCloser, error) {
	start := time.Now()
	w, err := d.Document.OpenWrite(ctx, append)
	d.s.observe("OpenWrite", start, err)
	if err != nil {
		return nil, err
	}
	return &countingWriter{WriteCloser: w, done: func(n int64, closeErr error) {
		d.s.observe("CommitWrite", start, closeErr)
		d.s.m.RecordBytes(d.s.backend, metrics.DirectionIn, n)
	}}, nil
}

type countingReader struct {
	io.ReadCloser
	n    int64
	done func(int64)
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.n += int64(n)
	return n, err
}

func (r *countingReader) Close() error {
	err := r.ReadCloser.Close()
	if r.done != nil {
		r.done(r.n)
		r.done = nil
	}
	return err
}

type countingWriter struct {
	io.WriteCloser
	n    int64
	done func(int64, error)
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.WriteCloser.Write(p)
	w.n += int64(n)
	return n, err
}

func (w *countingWriter) Close() error {
	err := w.WriteCloser.Close()
	if w.done != nil {
		w.done(w.n, err)
		w.done = nil
	}
	return err
}
