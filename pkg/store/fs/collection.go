package fs

import (
	"context"
	"io"
	"os"

	"github.com/marmos91/dittodav/pkg/store"
	"github.com/spf13/afero"
)

// collection is a directory.
type collection struct {
	entry
}

func (c *collection) Child(ctx context.Context, name string) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Names that cannot exist must not be allowed to walk the tree
	if store.ValidateName(name) != nil {
		return nil, store.NewError(store.ErrNotFound, store.JoinPath(c.path, name), nil)
	}
	return c.store.load(store.JoinPath(c.path, name))
}

func (c *collection) Children(ctx context.Context) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := afero.ReadDir(c.store.fs, c.path)
	if err != nil {
		return nil, mapError(err, c.path)
	}

	items := make([]store.Item, 0, len(infos))
	for _, info := range infos {
		e := entry{store: c.store, path: store.JoinPath(c.path, info.Name()), info: info}
		switch {
		case info.IsDir():
			items = append(items, &collection{e})
		case info.Mode().IsRegular():
			items = append(items, &document{e})
		}
	}
	return items, nil
}

func (c *collection) CreateCollection(ctx context.Context, name string) (store.Collection, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := c.store.locks.Lock(c.path)
	defer unlock()

	p := store.JoinPath(c.path, name)
	if err := c.store.fs.Mkdir(p, 0755); err != nil {
		return nil, mapError(err, p)
	}

	info, err := c.store.fs.Stat(p)
	if err != nil {
		return nil, mapError(err, p)
	}
	return &collection{entry{store: c.store, path: p, info: info}}, nil
}

func (c *collection) CreateDocument(ctx context.Context, name string) (store.Document, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := c.store.locks.Lock(c.path)
	defer unlock()

	p := store.JoinPath(c.path, name)
	f, err := c.store.fs.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, mapError(err, p)
	}
	info, statErr := f.Stat()
	if err := f.Close(); err != nil {
		return nil, mapError(err, p)
	}
	if statErr != nil {
		return nil, mapError(statErr, p)
	}
	return &document{entry{store: c.store, path: p, info: info}}, nil
}

func (c *collection) Delete(ctx context.Context, it store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := c.store.pathOf(it)
	if err != nil {
		return err
	}
	if p == store.RootPath || store.ParentPath(p) != c.path {
		return store.NewError(store.ErrNotFound, p, nil)
	}

	unlock := c.store.locks.Lock(c.path)
	defer unlock()

	if _, err := c.store.fs.Stat(p); err != nil {
		return mapError(err, p)
	}
	if err := c.store.fs.RemoveAll(p); err != nil {
		return mapError(err, p)
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

	srcPath, err := c.store.pathOf(src)
	if err != nil {
		return err
	}
	if _, isCol := src.(*collection); isCol && deep && (srcPath == c.path || store.IsDescendant(c.path, srcPath)) {
		return &store.StoreError{Code: store.ErrInvalidName, Message: "cannot copy a collection into itself", Path: srcPath}
	}

	unlock := c.store.locks.Lock(c.path)
	defer unlock()

	dst := store.JoinPath(c.path, name)
	if exists, err := afero.Exists(c.store.fs, dst); err != nil {
		return mapError(err, dst)
	} else if exists {
		return store.NewError(store.ErrAlreadyExists, dst, nil)
	}

	if err := c.store.copyTree(ctx, srcPath, dst, deep); err != nil {
		_ = c.store.fs.RemoveAll(dst)
		return err
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

	srcPath, err := c.store.pathOf(src)
	if err != nil {
		return err
	}
	if srcPath == store.RootPath {
		return &store.StoreError{Code: store.ErrAccessDenied, Message: "cannot move the root collection", Path: store.RootPath}
	}
	if _, isCol := src.(*collection); isCol && (srcPath == c.path || store.IsDescendant(c.path, srcPath)) {
		return &store.StoreError{Code: store.ErrInvalidName, Message: "cannot move a collection into itself", Path: srcPath}
	}

	unlock := c.store.locks.Lock(c.path, store.ParentPath(srcPath))
	defer unlock()

	dst := store.JoinPath(c.path, name)
	if dst == srcPath {
		return nil
	}
	// Rename replaces existing files on most platforms; refuse instead
	if exists, err := afero.Exists(c.store.fs, dst); err != nil {
		return mapError(err, dst)
	} else if exists {
		return store.NewError(store.ErrAlreadyExists, dst, nil)
	}

	if err := c.store.fs.Rename(srcPath, dst); err != nil {
		return mapError(err, srcPath)
	}
	return nil
}

// copyTree copies the file or directory at src to dst. Directories are copied
// recursively when deep is set, otherwise only the directory itself is created.
func (s *FSStore) copyTree(ctx context.Context, src, dst string, deep bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := s.fs.Stat(src)
	if err != nil {
		return mapError(err, src)
	}

	if !info.IsDir() {
		return s.copyFile(ctx, src, dst, info)
	}

	if err := s.fs.Mkdir(dst, info.Mode().Perm()|0700); err != nil {
		return mapError(err, dst)
	}
	if !deep {
		return nil
	}

	children, err := afero.ReadDir(s.fs, src)
	if err != nil {
		return mapError(err, src)
	}
	for _, child := range children {
		if !child.IsDir() && !child.Mode().IsRegular() {
			continue
		}
		if err := s.copyTree(ctx, store.JoinPath(src, child.Name()), store.JoinPath(dst, child.Name()), true); err != nil {
			return err
		}
	}
	return nil
}

func (s *FSStore) copyFile(ctx context.Context, src, dst string, info os.FileInfo) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return mapError(err, src)
	}
	defer func() { _ = in.Close() }()

	out, err := s.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return mapError(err, dst)
	}

	if _, err := io.Copy(out, &ctxReader{ctx: ctx, r: in}); err != nil {
		_ = out.Close()
		return mapError(err, dst)
	}
	if err := out.Close(); err != nil {
		return mapError(err, dst)
	}

	// Best effort: some filesystems refuse to set times
	_ = s.fs.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}

// ctxReader stops a copy once its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
