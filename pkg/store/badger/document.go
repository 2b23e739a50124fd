package badger

import (
	"context"
	"errors"
	"io"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/store"
)

// document is a record of kind document.
type document struct {
	entry
}

func (d *document) Size() int64 {
	return d.rec.Size
}

// OpenRead returns a stream over the document's current content. The stream
// holds a read-only transaction, so it sees a consistent snapshot until it
// is closed.
func (d *document) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := d.store.db.NewTransaction(false)
	rec, err := getRecord(txn, d.rec.ID, d.path)
	if err != nil {
		txn.Discard()
		return nil, err
	}
	return &chunkReader{ctx: ctx, txn: txn, rec: rec, path: d.path}, nil
}

// OpenWrite returns a stream that replaces (or extends) the content. Data is
// staged under a new blob and becomes visible on Close.
func (d *document) OpenWrite(ctx context.Context, append bool) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &chunkWriter{
		ctx:   ctx,
		store: d.store,
		id:    d.rec.ID,
		path:  d.path,
		blob:  uuid.New(),
		wb:    d.store.db.NewWriteBatch(),
		buf:   make([]byte, 0, chunkSize),
	}

	err := d.store.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, d.rec.ID, d.path)
		if err != nil {
			return err
		}
		if !append || rec.Blob == uuid.Nil {
			return nil
		}
		return w.seed(txn, rec)
	})
	if err != nil {
		w.wb.Cancel()
		return nil, mapError(err, d.path)
	}
	return w, nil
}

// chunkReader streams a blob chunk by chunk.
type chunkReader struct {
	ctx  context.Context
	txn  *badger.Txn
	rec  *record
	path string

	next   int
	buf    []byte
	closed bool
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, errors.New("read on closed document stream")
	}

	for len(r.buf) == 0 {
		if r.next >= r.rec.Chunks {
			return 0, io.EOF
		}
		if err := r.ctx.Err(); err != nil {
			return 0, err
		}

		item, err := r.txn.Get(keyChunk(r.rec.Blob, r.next))
		if err != nil {
			return 0, mapError(err, r.path)
		}
		r.buf, err = item.ValueCopy(r.buf[:0])
		if err != nil {
			return 0, mapError(err, r.path)
		}
		r.next++
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *chunkReader) Close() error {
	if !r.closed {
		r.closed = true
		r.txn.Discard()
	}
	return nil
}

// chunkWriter cuts the stream into chunks and stages them in a write batch.
type chunkWriter struct {
	ctx   context.Context
	store *BadgerStore
	id    uuid.UUID
	path  string

	blob   uuid.UUID
	wb     *badger.WriteBatch
	buf    []byte
	chunks int
	size   int64
	err    error
	closed bool
}

// seed copies the existing content of rec into the new blob. Full chunks are
// staged as-is; a trailing partial chunk is loaded into the buffer so new
// data continues it.
func (w *chunkWriter) seed(txn *badger.Txn, rec *record) error {
	for i := 0; i < rec.Chunks; i++ {
		item, err := txn.Get(keyChunk(rec.Blob, i))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		if i == rec.Chunks-1 && len(val) < chunkSize {
			w.buf = append(w.buf, val...)
			w.size += int64(len(val))
			return nil
		}
		if err := w.wb.Set(keyChunk(w.blob, w.chunks), val); err != nil {
			return err
		}
		w.chunks++
		w.size += int64(len(val))
	}
	return nil
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("write on closed document stream")
	}
	if w.err != nil {
		return 0, w.err
	}

	written := 0
	for len(p) > 0 {
		n := chunkSize - len(w.buf)
		if n > len(p) {
			n = len(p)
		}
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		written += n
		w.size += int64(n)

		if len(w.buf) == chunkSize {
			if err := w.flushChunk(); err != nil {
				w.err = err
				return written, err
			}
		}
	}
	return written, nil
}

func (w *chunkWriter) flushChunk() error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	val := make([]byte, len(w.buf))
	copy(val, w.buf)
	if err := w.wb.Set(keyChunk(w.blob, w.chunks), val); err != nil {
		return mapError(err, w.path)
	}
	w.chunks++
	w.buf = w.buf[:0]
	return nil
}

// Close stages the last chunk, flushes the batch and swaps the new blob into
// the document record.
func (w *chunkWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.err == nil && len(w.buf) > 0 {
		w.err = w.flushChunk()
	}
	if w.err != nil {
		w.wb.Cancel()
		w.discardBlob()
		return w.err
	}
	if err := w.wb.Flush(); err != nil {
		w.discardBlob()
		return mapError(err, w.path)
	}

	blob := w.blob
	if w.chunks == 0 {
		blob = uuid.Nil
	}

	var old *record
	err := w.store.update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, w.id, w.path)
		if err != nil {
			return err
		}
		prev := *rec
		old = &prev

		rec.Blob = blob
		rec.Size = w.size
		rec.Chunks = w.chunks
		rec.ModTime = time.Now()
		return putRecord(txn, rec)
	})
	if err != nil {
		w.discardBlob()
		return mapError(err, w.path)
	}

	if old != nil && old.Blob != uuid.Nil {
		w.store.deleteKeys(chunkKeys(old.Blob, old.Chunks), w.path)
	}
	return nil
}

// discardBlob removes chunks staged by an aborted write.
func (w *chunkWriter) discardBlob() {
	w.store.deleteKeys(chunkKeys(w.blob, w.chunks), w.path)
}

// deleteKeys removes keys in a write batch, logging failures.
func (s *BadgerStore) deleteKeys(keys [][]byte, p string) {
	if len(keys) == 0 {
		return
	}

	wb := s.db.NewWriteBatch()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			logger.Warn("badger store: failed to reclaim content of %s: %v", p, err)
			return
		}
	}
	if err := wb.Flush(); err != nil {
		logger.Warn("badger store: failed to reclaim content of %s: %v", p, err)
	}
}

var _ store.Document = (*document)(nil)
var _ store.Collection = (*collection)(nil)
var _ store.Store = (*BadgerStore)(nil)
