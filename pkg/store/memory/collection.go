package memory

import (
	"context"
	"sync"

	"github.com/marmos91/dittodav/pkg/store"
)

// collection is the in-memory store.Collection.
type collection struct {
	node

	// cmu protects children. Structural mutations additionally hold the
	// collection's entry in the store lock table for their whole duration.
	cmu      sync.RWMutex
	children map[string]item
}

func (c *collection) Child(ctx context.Context, name string) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.cmu.RLock()
	defer c.cmu.RUnlock()

	child, ok := c.children[name]
	if !ok {
		return nil, store.NewError(store.ErrNotFound, store.JoinPath(c.Path(), name), nil)
	}
	return child, nil
}

func (c *collection) Children(ctx context.Context) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.cmu.RLock()
	defer c.cmu.RUnlock()

	items := make([]store.Item, 0, len(c.children))
	for _, child := range c.children {
		items = append(items, child)
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

	unlock := c.store.locks.Lock(c.id)
	defer unlock()

	if c.has(name) {
		return nil, store.NewError(store.ErrAlreadyExists, store.JoinPath(c.Path(), name), nil)
	}

	child := c.store.newCollection(name, c)
	c.attach(child)
	return child, nil
}

func (c *collection) CreateDocument(ctx context.Context, name string) (store.Document, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := c.store.locks.Lock(c.id)
	defer unlock()

	if c.has(name) {
		return nil, store.NewError(store.ErrAlreadyExists, store.JoinPath(c.Path(), name), nil)
	}

	doc := c.store.newDocument(name, c)
	c.attach(doc)
	return doc, nil
}

func (c *collection) Delete(ctx context.Context, it store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := c.store.asItem(it)
	if err != nil {
		return err
	}

	unlock := c.store.locks.Lock(c.id)
	defer unlock()

	name := target.Name()
	c.cmu.RLock()
	current, ok := c.children[name]
	c.cmu.RUnlock()
	if !ok || current != target {
		return store.NewError(store.ErrNotFound, store.JoinPath(c.Path(), name), nil)
	}

	c.detach(name)
	c.store.used.Add(-sizeOf(target))
	return nil
}

func (c *collection) CopyItemHere(ctx context.Context, src store.Item, name string, deep bool) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	source, err := c.store.asItem(src)
	if err != nil {
		return err
	}
	if col, ok := source.(*collection); ok && deep && (col == c || c.isInside(col)) {
		return &store.StoreError{Code: store.ErrInvalidName, Message: "cannot copy a collection into itself", Path: col.Path()}
	}

	unlock := c.store.locks.Lock(c.id)
	defer unlock()

	if c.has(name) {
		return store.NewError(store.ErrAlreadyExists, store.JoinPath(c.Path(), name), nil)
	}

	clone, err := c.store.clone(ctx, source, name, c, deep)
	if err != nil {
		return err
	}
	c.attach(clone)
	return nil
}

func (c *collection) MoveItemHere(ctx context.Context, src store.Item, name string) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	source, err := c.store.asItem(src)
	if err != nil {
		return err
	}
	from := source.base().getParent()
	if from == nil {
		return &store.StoreError{Code: store.ErrAccessDenied, Message: "cannot move the root collection", Path: store.RootPath}
	}
	if col, ok := source.(*collection); ok && (col == c || c.isInside(col)) {
		return &store.StoreError{Code: store.ErrInvalidName, Message: "cannot move a collection into itself", Path: col.Path()}
	}

	unlock := c.store.locks.Lock(c.id, from.id)
	defer unlock()

	if c.has(name) {
		return store.NewError(store.ErrAlreadyExists, store.JoinPath(c.Path(), name), nil)
	}

	oldName := source.Name()
	from.cmu.RLock()
	current, ok := from.children[oldName]
	from.cmu.RUnlock()
	if !ok || current != source {
		return store.NewError(store.ErrNotFound, source.Path(), nil)
	}

	from.detach(oldName)

	b := source.base()
	b.mu.Lock()
	b.name = name
	b.parent = c
	b.mu.Unlock()

	c.attach(source)
	return nil
}

func (c *collection) has(name string) bool {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	_, ok := c.children[name]
	return ok
}

func (c *collection) attach(child item) {
	c.cmu.Lock()
	c.children[child.Name()] = child
	c.cmu.Unlock()
	c.touch()
}

func (c *collection) detach(name string) {
	c.cmu.Lock()
	delete(c.children, name)
	c.cmu.Unlock()
	c.touch()
}

// isInside reports whether c lies in the subtree rooted at ancestor.
func (c *collection) isInside(ancestor *collection) bool {
	for p := c.getParent(); p != nil; p = p.getParent() {
		if p == ancestor {
			return true
		}
	}
	return false
}

// clone builds a detached copy of src named name under parent.
func (s *MemoryStore) clone(ctx context.Context, src item, name string, parent *collection, deep bool) (item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch it := src.(type) {
	case *document:
		data, modTime := it.snapshot()
		if err := s.reserve(int64(len(data)), store.JoinPath(parent.Path(), name)); err != nil {
			return nil, err
		}
		doc := s.newDocument(name, parent)
		doc.data = data
		doc.modTime = modTime
		return doc, nil

	case *collection:
		col := s.newCollection(name, parent)
		if !deep {
			return col, nil
		}

		it.cmu.RLock()
		children := make([]item, 0, len(it.children))
		for _, child := range it.children {
			children = append(children, child)
		}
		it.cmu.RUnlock()

		for _, child := range children {
			cc, err := s.clone(ctx, child, child.Name(), col, true)
			if err != nil {
				col.release()
				return nil, err
			}
			col.children[cc.Name()] = cc
		}
		return col, nil

	default:
		return nil, store.NewError(store.ErrNotSupported, src.Path(), nil)
	}
}

// release returns the bytes accounted to a detached subtree.
func (c *collection) release() {
	c.store.used.Add(-sizeOf(c))
}

// sizeOf sums document bytes in the subtree rooted at it.
func sizeOf(it item) int64 {
	switch v := it.(type) {
	case *document:
		return v.Size()
	case *collection:
		v.cmu.RLock()
		defer v.cmu.RUnlock()
		var total int64
		for _, child := range v.children {
			total += sizeOf(child)
		}
		return total
	}
	return 0
}
