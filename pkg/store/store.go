// Package store defines the hierarchical document store served over WebDAV.
//
// A Store owns a single root Collection. Every item is reachable from the root
// by walking child names. Items come in exactly two capability sets:
//
//   - Document: byte content with a size, readable and writable as a stream
//   - Collection: a set of named children that can be created, deleted, copied
//     and moved
//
// Callers branch on capability with a type switch:
//
//	switch it := item.(type) {
//	case store.Document:
//	    ...
//	case store.Collection:
//	    ...
//	}
//
// Implementations live in sub-packages (memory, fs, badger, s3). All of them
// are safe for concurrent use and serialize structural mutations per
// collection (see LockTable), so two requests creating, deleting or renaming
// children of the same collection never interleave.
//
// Items are views onto the store's current tree. The protocol layer resolves
// them per request and never caches them across requests.
package store

import (
	"context"
	"io"
	"time"
)

// Item is the common part of every store entry.
type Item interface {
	// Name is the last path segment. The root collection has an empty name.
	Name() string

	// Path is the slash-separated path from the root, unique within the store.
	// The root is "/". Collections do not carry a trailing slash.
	Path() string

	// ModTime is the last modification time.
	ModTime() time.Time
}

// Document is a file-like item with byte content.
type Document interface {
	Item

	// Size returns the content length in bytes.
	Size() int64

	// OpenRead returns a stream over the current content.
	// The caller must close it.
	OpenRead(ctx context.Context) (io.ReadCloser, error)

	// OpenWrite returns a stream that replaces the content, or extends it when
	// append is true. The new content is visible once the stream is closed.
	OpenWrite(ctx context.Context, append bool) (io.WriteCloser, error)
}

// Collection is a directory-like item containing named children.
type Collection interface {
	Item

	// Child looks up a direct child by name.
	// Returns a StoreError with ErrNotFound when no such child exists.
	Child(ctx context.Context, name string) (Item, error)

	// Children lists the direct children in no particular order.
	Children(ctx context.Context) ([]Item, error)

	// CreateCollection creates an empty child collection.
	// Returns ErrAlreadyExists if the name is taken.
	CreateCollection(ctx context.Context, name string) (Collection, error)

	// CreateDocument creates an empty child document.
	// Returns ErrAlreadyExists if the name is taken.
	CreateDocument(ctx context.Context, name string) (Document, error)

	// Delete removes a direct child and, for collections, its whole subtree.
	Delete(ctx context.Context, item Item) error

	// CopyItemHere copies src into this collection under name.
	//
	// Document content is always copied. For a collection source, deep selects
	// a recursive copy; otherwise an empty collection named name is created.
	// The destination name must be free.
	CopyItemHere(ctx context.Context, src Item, name string, deep bool) error

	// MoveItemHere moves src, with its whole subtree, into this collection
	// under name. The destination name must be free.
	MoveItemHere(ctx context.Context, src Item, name string) error
}

// Store is a hierarchical document store.
type Store interface {
	// Root returns the root collection.
	Root(ctx context.Context) (Collection, error)

	// Close releases resources held by the store.
	Close() error
}
