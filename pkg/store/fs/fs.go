// Package fs implements a store.Store over a directory tree.
//
// The tree is accessed through an afero.Fs rooted at the configured base
// directory, so the same code serves the local disk in production and an
// in-memory filesystem in tests. Collections are directories, documents are
// regular files; no sidecar metadata is kept.
package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path"
	"syscall"
	"time"

	"github.com/marmos91/dittodav/pkg/store"
	"github.com/spf13/afero"
)

// FSStoreConfig contains configuration for the filesystem store.
type FSStoreConfig struct {
	// Path is the base directory that becomes the store root
	Path string `mapstructure:"path" validate:"required"`

	// ReadOnly rejects every mutation with ErrAccessDenied
	ReadOnly bool `mapstructure:"read_only"`
}

// FSStore implements store.Store on an afero filesystem.
//
// Thread Safety:
// Structural mutations are serialized per collection path through a
// store.LockTable. Concurrent writes to the same document are not
// coordinated; the last stream to close wins.
type FSStore struct {
	fs    afero.Fs
	locks *store.LockTable
}

// NewFSStore creates a filesystem store rooted at cfg.Path.
//
// The base directory is created with permissions 0755 if it does not exist.
//
// Parameters:
//   - ctx: Context for cancellation (checked before touching the disk)
//   - cfg: Store configuration
//
// Returns:
//   - *FSStore: Store rooted at the base directory
//   - error: Returns error if the directory cannot be created or ctx is cancelled
func NewFSStore(ctx context.Context, cfg FSStoreConfig) (*FSStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, errors.New("filesystem store: path is required")
	}

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, mapError(err, cfg.Path)
	}

	var fsys afero.Fs = afero.NewBasePathFs(osFs, cfg.Path)
	if cfg.ReadOnly {
		fsys = afero.NewReadOnlyFs(fsys)
	}
	return NewFSStoreWithFs(fsys), nil
}

// NewFSStoreWithFs creates a store over an existing afero filesystem whose
// "/" is the store root.
func NewFSStoreWithFs(fsys afero.Fs) *FSStore {
	return &FSStore{
		fs:    fsys,
		locks: store.NewLockTable(),
	}
}

// Root returns the root collection.
func (s *FSStore) Root(ctx context.Context) (store.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := s.fs.Stat(store.RootPath)
	if err != nil {
		return nil, mapError(err, store.RootPath)
	}
	if !info.IsDir() {
		return nil, store.NewError(store.ErrNotCollection, store.RootPath, nil)
	}
	return &collection{entry{store: s, path: store.RootPath, info: info}}, nil
}

// Close is a no-op; no descriptors are held between operations.
func (s *FSStore) Close() error {
	return nil
}

// load wraps the file at p into the matching item type.
func (s *FSStore) load(p string) (store.Item, error) {
	info, err := s.fs.Stat(p)
	if err != nil {
		return nil, mapError(err, p)
	}
	e := entry{store: s, path: p, info: info}
	if info.IsDir() {
		return &collection{e}, nil
	}
	if !info.Mode().IsRegular() {
		return nil, &store.StoreError{Code: store.ErrNotSupported, Message: "unsupported file type", Path: p}
	}
	return &document{e}, nil
}

// pathOf returns the store path of an item created by this store.
func (s *FSStore) pathOf(it store.Item) (string, error) {
	var e *entry
	switch v := it.(type) {
	case *collection:
		e = &v.entry
	case *document:
		e = &v.entry
	}
	if e == nil || e.store != s {
		return "", &store.StoreError{
			Code:    store.ErrNotSupported,
			Message: "item belongs to a different store",
			Path:    it.Path(),
		}
	}
	return e.path, nil
}

// entry holds the state shared by collections and documents. The FileInfo
// is a snapshot taken when the item was resolved.
type entry struct {
	store *FSStore
	path  string
	info  os.FileInfo
}

func (e *entry) Name() string {
	if e.path == store.RootPath {
		return ""
	}
	return path.Base(e.path)
}

func (e *entry) Path() string {
	return e.path
}

func (e *entry) ModTime() time.Time {
	return e.info.ModTime()
}

// mapError translates filesystem errors into store errors.
func mapError(err error, p string) error {
	if err == nil {
		return nil
	}

	var se *store.StoreError
	if errors.As(err, &se) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, iofs.ErrNotExist):
		return store.NewError(store.ErrNotFound, p, err)
	case errors.Is(err, iofs.ErrPermission), errors.Is(err, syscall.EROFS):
		return store.NewError(store.ErrAccessDenied, p, err)
	case errors.Is(err, iofs.ErrExist):
		return store.NewError(store.ErrAlreadyExists, p, err)
	case errors.Is(err, syscall.ENOTDIR):
		return store.NewError(store.ErrNotCollection, p, err)
	case errors.Is(err, syscall.ENOSPC):
		return store.NewError(store.ErrNoSpace, p, err)
	}
	return store.NewError(store.ErrIO, p, err)
}
