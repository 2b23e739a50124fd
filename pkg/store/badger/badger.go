// Package badger implements a persistent store.Store on BadgerDB.
//
// The whole tree, structure and content, lives in one embedded key-value
// database (see keys.go for the layout). It is the backend of choice for
// single-node deployments that need persistence without a filesystem tree
// that other processes could modify behind the server's back.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"
	"github.com/marmos91/dittodav/pkg/store"
)

// chunkSize is the size of one content chunk.
const chunkSize = 64 * 1024

// maxConflictRetries bounds how often an update transaction is retried after
// badger reports a conflicting concurrent commit.
const maxConflictRetries = 8

// BadgerStoreConfig contains configuration for creating a BadgerDB store.
type BadgerStoreConfig struct {
	// DBPath is the directory where BadgerDB will store its files
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk (tests, scratch servers)
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// BadgerStore implements store.Store using BadgerDB for persistence.
//
// Thread Safety:
// Structural mutations are serialized per collection UUID through a
// store.LockTable. Record updates additionally rely on badger's optimistic
// transactions: a commit that lost a race is retried with fresh reads.
type BadgerStore struct {
	db     *badger.DB
	locks  *store.LockTable
	rootID uuid.UUID
}

// NewBadgerStore opens (or creates) a BadgerDB store.
//
// Parameters:
//   - ctx: Context for cancellation (checked before opening the database)
//   - config: Database location and cache sizes
//
// Returns:
//   - *BadgerStore: A store whose root collection exists
//   - error: Error if the database cannot be opened or initialized
func NewBadgerStore(ctx context.Context, config BadgerStoreConfig) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.DBPath == "" && !config.InMemory {
		return nil, errors.New("badger store: db_path is required unless in_memory is set")
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	s := &BadgerStore{
		db:    db,
		locks: store.NewLockTable(),
	}

	if err := s.initializeRoot(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize root: %w", err)
	}
	return s, nil
}

// initializeRoot creates the root record on first open and loads its id.
func (s *BadgerStore) initializeRoot() error {
	return s.update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRoot())
		if err == nil {
			return item.Value(func(val []byte) error {
				id, err := uuid.ParseBytes(val)
				if err != nil {
					return fmt.Errorf("corrupt root pointer: %w", err)
				}
				s.rootID = id
				return nil
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		root := &record{
			ID:      uuid.New(),
			Kind:    kindCollection,
			ModTime: time.Now(),
		}
		if err := putRecord(txn, root); err != nil {
			return err
		}
		if err := txn.Set(keyRoot(), []byte(root.ID.String())); err != nil {
			return err
		}
		s.rootID = root.ID
		return nil
	})
}

// Root returns the root collection.
func (s *BadgerStore) Root(ctx context.Context) (store.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, s.rootID, store.RootPath)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &collection{entry{store: s, rec: rec, path: store.RootPath}}, nil
}

// Close closes the BadgerDB database and releases all resources.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// wrap builds the item for rec at path p.
func (s *BadgerStore) wrap(rec *record, p string) store.Item {
	e := entry{store: s, rec: rec, path: p}
	if rec.Kind == kindCollection {
		return &collection{e}
	}
	return &document{e}
}

// entryOf returns the entry of an item created by this store.
func (s *BadgerStore) entryOf(it store.Item) (*entry, error) {
	var e *entry
	switch v := it.(type) {
	case *collection:
		e = &v.entry
	case *document:
		e = &v.entry
	}
	if e == nil || e.store != s {
		return nil, &store.StoreError{
			Code:    store.ErrNotSupported,
			Message: "item belongs to a different store",
			Path:    it.Path(),
		}
	}
	return e, nil
}

// entry holds the state shared by collections and documents. The record is
// a snapshot taken when the item was resolved; mutations always reload it.
type entry struct {
	store *BadgerStore
	rec   *record
	path  string
}

func (e *entry) Name() string { return e.rec.Name }

func (e *entry) Path() string { return e.path }

func (e *entry) ModTime() time.Time { return e.rec.ModTime }

func (e *entry) childPath(name string) string { return store.JoinPath(e.path, name) }

// getRecord loads the record of id.
func getRecord(txn *badger.Txn, id uuid.UUID, p string) (*record, error) {
	item, err := txn.Get(keyFile(id))
	if err != nil {
		return nil, mapError(err, p)
	}

	var rec *record
	err = item.Value(func(val []byte) error {
		var err error
		rec, err = decodeRecord(val)
		return err
	})
	if err != nil {
		return nil, store.NewError(store.ErrIO, p, err)
	}
	return rec, nil
}

// putRecord stores rec under its id.
func putRecord(txn *badger.Txn, rec *record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return txn.Set(keyFile(rec.ID), data)
}

// getChildID resolves the child link name of parent.
func getChildID(txn *badger.Txn, parent uuid.UUID, name, p string) (uuid.UUID, error) {
	item, err := txn.Get(keyChild(parent, name))
	if err != nil {
		return uuid.Nil, mapError(err, p)
	}

	var id uuid.UUID
	err = item.Value(func(val []byte) error {
		var err error
		id, err = uuid.ParseBytes(val)
		return err
	})
	if err != nil {
		return uuid.Nil, store.NewError(store.ErrIO, p, err)
	}
	return id, nil
}

// touch sets the modification time of the record id.
func touch(txn *badger.Txn, id uuid.UUID, p string, now time.Time) error {
	rec, err := getRecord(txn, id, p)
	if err != nil {
		return err
	}
	rec.ModTime = now
	return putRecord(txn, rec)
}

// mapError translates badger errors into store errors.
func mapError(err error, p string) error {
	if err == nil {
		return nil
	}

	var se *store.StoreError
	if errors.As(err, &se) {
		return err
	}

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return store.NewError(store.ErrNotFound, p, nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return store.NewError(store.ErrIO, p, err)
}
