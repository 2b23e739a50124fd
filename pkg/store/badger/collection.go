package badger

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/store"
)

// collection is a record of kind collection.
type collection struct {
	entry
}

func (c *collection) Child(ctx context.Context, name string) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := c.childPath(name)
	var rec *record
	err := c.store.db.View(func(txn *badger.Txn) error {
		id, err := getChildID(txn, c.rec.ID, name, p)
		if err != nil {
			return err
		}
		rec, err = getRecord(txn, id, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.store.wrap(rec, p), nil
}

func (c *collection) Children(ctx context.Context) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []store.Item
	err := c.store.db.View(func(txn *badger.Txn) error {
		links, err := listChildren(txn, c.rec.ID, c.path)
		if err != nil {
			return err
		}
		items = make([]store.Item, 0, len(links))
		for _, l := range links {
			p := c.childPath(l.name)
			rec, err := getRecord(txn, l.id, p)
			if err != nil {
				return err
			}
			items = append(items, c.store.wrap(rec, p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *collection) CreateCollection(ctx context.Context, name string) (store.Collection, error) {
	it, err := c.create(ctx, name, kindCollection)
	if err != nil {
		return nil, err
	}
	return it.(*collection), nil
}

func (c *collection) CreateDocument(ctx context.Context, name string) (store.Document, error) {
	it, err := c.create(ctx, name, kindDocument)
	if err != nil {
		return nil, err
	}
	return it.(*document), nil
}

// create inserts an empty child of kind k.
func (c *collection) create(ctx context.Context, name string, k kind) (store.Item, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := c.store.locks.Lock(c.rec.ID.String())
	defer unlock()

	p := c.childPath(name)
	now := time.Now()
	rec := &record{
		ID:      uuid.New(),
		Kind:    k,
		Name:    name,
		Parent:  c.rec.ID,
		ModTime: now,
	}

	err := c.store.update(func(txn *badger.Txn) error {
		if err := ensureFree(txn, c.rec.ID, name, p); err != nil {
			return err
		}
		if err := touch(txn, c.rec.ID, c.path, now); err != nil {
			return err
		}
		if err := putRecord(txn, rec); err != nil {
			return err
		}
		return txn.Set(keyChild(c.rec.ID, name), []byte(rec.ID.String()))
	})
	if err != nil {
		return nil, mapError(err, p)
	}
	return c.store.wrap(rec, p), nil
}

func (c *collection) Delete(ctx context.Context, it store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := c.store.entryOf(it)
	if err != nil {
		return err
	}
	if e.rec.ID == c.store.rootID {
		return store.NewError(store.ErrNotFound, e.path, nil)
	}

	unlock := c.store.locks.Lock(c.rec.ID.String())
	defer unlock()

	err = c.store.update(func(txn *badger.Txn) error {
		id, err := getChildID(txn, c.rec.ID, e.rec.Name, e.path)
		if err != nil {
			return err
		}
		if id != e.rec.ID {
			return store.NewError(store.ErrNotFound, e.path, nil)
		}
		if err := txn.Delete(keyChild(c.rec.ID, e.rec.Name)); err != nil {
			return err
		}
		return touch(txn, c.rec.ID, c.path, time.Now())
	})
	if err != nil {
		return mapError(err, e.path)
	}

	// The subtree is unreachable now; reclaiming its keys can lag behind
	if err := c.store.purge(e.rec.ID); err != nil {
		logger.Warn("badger store: failed to reclaim %s: %v", e.path, err)
	}
	return nil
}

func (c *collection) CopyItemHere(ctx context.Context, src store.Item, name string, deep bool) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := c.store.entryOf(src)
	if err != nil {
		return err
	}
	if e.rec.Kind == kindCollection && deep {
		inside, err := c.store.isInside(c.rec.ID, e.rec.ID)
		if err != nil {
			return err
		}
		if inside {
			return &store.StoreError{Code: store.ErrInvalidName, Message: "cannot copy a collection into itself", Path: e.path}
		}
	}

	unlock := c.store.locks.Lock(c.rec.ID.String())
	defer unlock()

	p := c.childPath(name)
	if err := c.store.db.View(func(txn *badger.Txn) error {
		return ensureFree(txn, c.rec.ID, name, p)
	}); err != nil {
		return err
	}

	wb := c.store.db.NewWriteBatch()
	cloneID, err := c.store.cloneTree(ctx, wb, e.rec.ID, c.rec.ID, name, deep)
	if err != nil {
		wb.Cancel()
		return mapError(err, p)
	}
	if err := wb.Flush(); err != nil {
		return mapError(err, p)
	}

	err = c.store.update(func(txn *badger.Txn) error {
		if err := ensureFree(txn, c.rec.ID, name, p); err != nil {
			return err
		}
		if err := touch(txn, c.rec.ID, c.path, time.Now()); err != nil {
			return err
		}
		return txn.Set(keyChild(c.rec.ID, name), []byte(cloneID.String()))
	})
	if err != nil {
		if perr := c.store.purge(cloneID); perr != nil {
			logger.Warn("badger store: failed to reclaim aborted copy %s: %v", p, perr)
		}
		return mapError(err, p)
	}
	return nil
}

func (c *collection) MoveItemHere(ctx context.Context, src store.Item, name string) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := c.store.entryOf(src)
	if err != nil {
		return err
	}
	if e.rec.ID == c.store.rootID {
		return &store.StoreError{Code: store.ErrAccessDenied, Message: "cannot move the root collection", Path: store.RootPath}
	}
	if e.rec.Kind == kindCollection {
		inside, err := c.store.isInside(c.rec.ID, e.rec.ID)
		if err != nil {
			return err
		}
		if inside {
			return &store.StoreError{Code: store.ErrInvalidName, Message: "cannot move a collection into itself", Path: e.path}
		}
	}

	from := e.rec.Parent
	unlock := c.store.locks.Lock(c.rec.ID.String(), from.String())
	defer unlock()

	p := c.childPath(name)
	err = c.store.update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, e.rec.ID, e.path)
		if err != nil {
			return err
		}
		if rec.Parent != from {
			return store.NewError(store.ErrNotFound, e.path, nil)
		}
		if rec.Parent == c.rec.ID && rec.Name == name {
			return nil
		}
		if err := ensureFree(txn, c.rec.ID, name, p); err != nil {
			return err
		}

		now := time.Now()
		if err := touch(txn, c.rec.ID, c.path, now); err != nil {
			return err
		}
		if from != c.rec.ID {
			if err := touch(txn, from, store.ParentPath(e.path), now); err != nil {
				return err
			}
		}

		if err := txn.Delete(keyChild(from, rec.Name)); err != nil {
			return err
		}
		rec.Name = name
		rec.Parent = c.rec.ID
		if err := putRecord(txn, rec); err != nil {
			return err
		}
		return txn.Set(keyChild(c.rec.ID, name), []byte(rec.ID.String()))
	})
	return mapError(err, p)
}

// childLink is one entry of a collection's children map.
type childLink struct {
	name string
	id   uuid.UUID
}

// listChildren scans the children map of parent.
func listChildren(txn *badger.Txn, parent uuid.UUID, p string) ([]childLink, error) {
	prefix := keyChildPrefix(parent)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var links []childLink
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		name := string(item.Key()[len(prefix):])
		err := item.Value(func(val []byte) error {
			id, err := uuid.ParseBytes(val)
			if err != nil {
				return err
			}
			links = append(links, childLink{name: name, id: id})
			return nil
		})
		if err != nil {
			return nil, store.NewError(store.ErrIO, store.JoinPath(p, name), err)
		}
	}
	return links, nil
}

// ensureFree fails with ErrAlreadyExists when parent has a child name.
func ensureFree(txn *badger.Txn, parent uuid.UUID, name, p string) error {
	_, err := txn.Get(keyChild(parent, name))
	if err == nil {
		return store.NewError(store.ErrAlreadyExists, p, nil)
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return mapError(err, p)
}

// isInside reports whether id equals ancestor or lies below it.
func (s *BadgerStore) isInside(id, ancestor uuid.UUID) (bool, error) {
	var inside bool
	err := s.db.View(func(txn *badger.Txn) error {
		for cur := id; ; {
			if cur == ancestor {
				inside = true
				return nil
			}
			if cur == s.rootID {
				return nil
			}
			rec, err := getRecord(txn, cur, "")
			if err != nil {
				return err
			}
			cur = rec.Parent
		}
	})
	return inside, err
}

// cloneTree writes a copy of the item srcID, named name under parent, into
// wb and returns the copy's id. The copy is not linked into parent.
func (s *BadgerStore) cloneTree(ctx context.Context, wb *badger.WriteBatch, srcID, parent uuid.UUID, name string, deep bool) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	var (
		src   *record
		links []childLink
	)
	clone := uuid.New()
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		src, err = getRecord(txn, srcID, "")
		if err != nil {
			return err
		}

		if src.Kind == kindCollection {
			if deep {
				links, err = listChildren(txn, srcID, "")
			}
			return err
		}

		// Chunks are read in the same snapshot as the record
		if src.Blob == uuid.Nil {
			return nil
		}
		blob := uuid.New()
		for i := 0; i < src.Chunks; i++ {
			item, err := txn.Get(keyChunk(src.Blob, i))
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := wb.Set(keyChunk(blob, i), val); err != nil {
				return err
			}
		}
		src.Blob = blob
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	for _, l := range links {
		childClone, err := s.cloneTree(ctx, wb, l.id, clone, l.name, true)
		if err != nil {
			return uuid.Nil, err
		}
		if err := wb.Set(keyChild(clone, l.name), []byte(childClone.String())); err != nil {
			return uuid.Nil, err
		}
	}

	rec := *src
	rec.ID = clone
	rec.Name = name
	rec.Parent = parent
	if rec.Kind == kindCollection {
		rec.ModTime = time.Now()
	}
	data, err := encodeRecord(&rec)
	if err != nil {
		return uuid.Nil, err
	}
	if err := wb.Set(keyFile(clone), data); err != nil {
		return uuid.Nil, err
	}
	return clone, nil
}

// purge deletes every key of the subtree rooted at id.
func (s *BadgerStore) purge(id uuid.UUID) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		return collectKeys(txn, id, &keys)
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			return err
		}
	}
	return wb.Flush()
}

func collectKeys(txn *badger.Txn, id uuid.UUID, keys *[][]byte) error {
	rec, err := getRecord(txn, id, "")
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return err
	}
	*keys = append(*keys, keyFile(id))

	if rec.Kind == kindDocument {
		*keys = append(*keys, chunkKeys(rec.Blob, rec.Chunks)...)
		return nil
	}

	links, err := listChildren(txn, id, "")
	if err != nil {
		return err
	}
	for _, l := range links {
		*keys = append(*keys, keyChild(id, l.name))
		if err := collectKeys(txn, l.id, keys); err != nil {
			return err
		}
	}
	return nil
}

func chunkKeys(blob uuid.UUID, chunks int) [][]byte {
	if blob == uuid.Nil {
		return nil
	}
	keys := make([][]byte, 0, chunks)
	for i := 0; i < chunks; i++ {
		keys = append(keys, keyChunk(blob, i))
	}
	return keys
}
