package store

import (
	"sort"
	"sync"
)

// LockTable hands out one mutex per collection key.
//
// Backends use it to guarantee that at most one structural mutation (create,
// delete, copy into, move into or out of) is in flight per collection. Keys are
// whatever identifies a collection in the backend: a path, a UUID, an object
// prefix. Entries are reference counted and dropped when unused.
//
// Lock acquires several keys at once in sorted order, which keeps two
// operations that touch the same pair of collections (a MOVE between two
// directories in opposite directions) from deadlocking.
type LockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{entries: make(map[string]*lockEntry)}
}

// Lock acquires the mutexes for all keys and returns the function that
// releases them. Duplicate keys are locked once.
func (t *LockTable) Lock(keys ...string) (unlock func()) {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	sort.Strings(uniq)

	held := make([]*lockEntry, 0, len(uniq))
	for _, k := range uniq {
		e := t.acquire(k)
		e.mu.Lock()
		held = append(held, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				t.release(uniq[i])
			}
		})
	}
}

func (t *LockTable) acquire(key string) *lockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{}
		t.entries[key] = e
	}
	e.refs++
	return e
}

func (t *LockTable) release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(t.entries, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (t *LockTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
