package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittodav/pkg/store"
)

// MemoryStore implements store.Store entirely in memory.
//
// This implementation is designed for:
//   - Testing and development
//   - Small, ephemeral deployments
//
// Characteristics:
//   - Volatile: data is lost on restart
//   - Memory-bound: optionally capped by MaxSizeBytes
//   - Thread-safe: each node guards its own fields; structural mutations are
//     serialized per collection through a store.LockTable
//
// Document content is held as immutable byte slices. A write stream builds a
// new slice and swaps it in on Close, so readers that opened a stream earlier
// keep seeing the old content.
type MemoryStore struct {
	root  *collection
	locks *store.LockTable

	// maxSize is the cap on total document bytes (0 = unlimited)
	maxSize uint64

	// used is the current total of document bytes
	used atomic.Int64

	nextID atomic.Uint64
}

// MemoryStoreConfig contains configuration for the in-memory store.
type MemoryStoreConfig struct {
	// MaxSizeBytes caps the total size of all documents (0 = unlimited)
	MaxSizeBytes uint64 `mapstructure:"max_size_bytes"`
}

// NewMemoryStore creates an empty in-memory store.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//   - cfg: Store configuration
//
// Returns:
//   - *MemoryStore: Initialized store with an empty root collection
//   - error: Only returns error if context is cancelled
func NewMemoryStore(ctx context.Context, cfg MemoryStoreConfig) (*MemoryStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &MemoryStore{
		locks:   store.NewLockTable(),
		maxSize: cfg.MaxSizeBytes,
	}
	s.root = s.newCollection("", nil)
	return s, nil
}

// Root returns the root collection.
func (s *MemoryStore) Root(ctx context.Context) (store.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.root, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// UsedBytes returns the total size of all documents.
func (s *MemoryStore) UsedBytes() int64 {
	return s.used.Load()
}

func (s *MemoryStore) newCollection(name string, parent *collection) *collection {
	return &collection{
		node: node{
			id:      s.nextKey(),
			store:   s,
			name:    name,
			parent:  parent,
			modTime: time.Now(),
		},
		children: make(map[string]item),
	}
}

func (s *MemoryStore) newDocument(name string, parent *collection) *document {
	return &document{
		node: node{
			id:      s.nextKey(),
			store:   s,
			name:    name,
			parent:  parent,
			modTime: time.Now(),
		},
	}
}

func (s *MemoryStore) nextKey() string {
	return fmt.Sprintf("mem-%d", s.nextID.Add(1))
}

// reserve accounts for delta additional document bytes.
func (s *MemoryStore) reserve(delta int64, path string) error {
	if delta <= 0 || s.maxSize == 0 {
		s.used.Add(delta)
		return nil
	}
	for {
		cur := s.used.Load()
		if uint64(cur+delta) > s.maxSize {
			return store.NewError(store.ErrNoSpace, path, nil)
		}
		if s.used.CompareAndSwap(cur, cur+delta) {
			return nil
		}
	}
}

// item is implemented by *collection and *document.
type item interface {
	store.Item
	base() *node
}

// node holds the fields shared by collections and documents.
type node struct {
	id    string
	store *MemoryStore

	mu      sync.RWMutex
	name    string
	parent  *collection
	modTime time.Time
}

func (n *node) base() *node { return n }

func (n *node) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

func (n *node) ModTime() time.Time {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.modTime
}

func (n *node) Path() string {
	n.mu.RLock()
	name, parent := n.name, n.parent
	n.mu.RUnlock()

	if parent == nil {
		return store.RootPath
	}
	return store.JoinPath(parent.Path(), name)
}

func (n *node) getParent() *collection {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

func (n *node) touch() {
	n.mu.Lock()
	n.modTime = time.Now()
	n.mu.Unlock()
}

// asItem checks that a foreign store.Item belongs to this store.
func (s *MemoryStore) asItem(it store.Item) (item, error) {
	mi, ok := it.(item)
	if !ok || mi.base().store != s {
		return nil, &store.StoreError{
			Code:    store.ErrNotSupported,
			Message: "item belongs to a different store",
			Path:    it.Path(),
		}
	}
	return mi, nil
}
