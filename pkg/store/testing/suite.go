package testing

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/dittodav/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a comprehensive test suite for store.Store implementations.
// It tests the interface contract, not implementation details, making it reusable
// across the memory, filesystem, badger and S3 backends.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) store.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test. The suite closes it.
	NewStore func(t *testing.T) store.Store

	// SkipAppend skips append-mode writes for backends that reject them
	// with store.ErrNotSupported.
	SkipAppend bool
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Root", suite.RunRootTests)
	t.Run("Documents", suite.RunDocumentTests)
	t.Run("Collections", suite.RunCollectionTests)
	t.Run("Delete", suite.RunDeleteTests)
	t.Run("Copy", suite.RunCopyTests)
	t.Run("Move", suite.RunMoveTests)
	t.Run("Concurrency", suite.RunConcurrencyTests)
}

func (suite *StoreTestSuite) open(t *testing.T) (context.Context, store.Collection) {
	t.Helper()

	s := suite.NewStore(t)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	root, err := s.Root(ctx)
	require.NoError(t, err)
	return ctx, root
}

// RunRootTests checks the shape of an empty store.
func (suite *StoreTestSuite) RunRootTests(t *testing.T) {
	ctx, root := suite.open(t)

	assert.Equal(t, store.RootPath, root.Path())
	assert.Equal(t, "", root.Name())

	children, err := root.Children(ctx)
	require.NoError(t, err)
	assert.Empty(t, children)

	_, err = root.Child(ctx, "missing")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err), "expected not found, got %v", err)
}

// RunDocumentTests covers document creation and stream I/O.
func (suite *StoreTestSuite) RunDocumentTests(t *testing.T) {
	t.Run("CreateAndRead", func(t *testing.T) {
		ctx, root := suite.open(t)

		doc, err := root.CreateDocument(ctx, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "/a.txt", doc.Path())
		assert.Equal(t, "a.txt", doc.Name())

		WriteDocument(t, ctx, doc, []byte("hello"), false)

		item, err := root.Child(ctx, "a.txt")
		require.NoError(t, err)
		got, ok := item.(store.Document)
		require.True(t, ok, "child should be a document")
		assert.Equal(t, int64(5), got.Size())
		assert.Equal(t, []byte("hello"), ReadDocument(t, ctx, got))
	})

	t.Run("EmptyDocument", func(t *testing.T) {
		ctx, root := suite.open(t)

		doc, err := root.CreateDocument(ctx, "empty")
		require.NoError(t, err)
		assert.Equal(t, int64(0), doc.Size())
		assert.Empty(t, ReadDocument(t, ctx, doc))
	})

	t.Run("Truncate", func(t *testing.T) {
		ctx, root := suite.open(t)

		doc, err := root.CreateDocument(ctx, "t.txt")
		require.NoError(t, err)
		WriteDocument(t, ctx, doc, []byte("a long first version"), false)
		WriteDocument(t, ctx, doc, []byte("short"), false)

		doc = LookupDocument(t, ctx, root, "t.txt")
		assert.Equal(t, int64(5), doc.Size())
		assert.Equal(t, []byte("short"), ReadDocument(t, ctx, doc))
	})

	t.Run("Append", func(t *testing.T) {
		if suite.SkipAppend {
			t.Skip("backend does not support append")
		}
		ctx, root := suite.open(t)

		doc, err := root.CreateDocument(ctx, "log")
		require.NoError(t, err)
		WriteDocument(t, ctx, doc, []byte("one,"), false)
		WriteDocument(t, ctx, doc, []byte("two"), true)

		doc = LookupDocument(t, ctx, root, "log")
		assert.Equal(t, []byte("one,two"), ReadDocument(t, ctx, doc))
	})

	t.Run("LargeDocument", func(t *testing.T) {
		ctx, root := suite.open(t)

		data := Pattern(300*1024 + 17)
		doc, err := root.CreateDocument(ctx, "big.bin")
		require.NoError(t, err)
		WriteDocument(t, ctx, doc, data, false)

		doc = LookupDocument(t, ctx, root, "big.bin")
		assert.Equal(t, int64(len(data)), doc.Size())
		assert.True(t, bytes.Equal(data, ReadDocument(t, ctx, doc)), "content mismatch")
	})

	t.Run("DuplicateName", func(t *testing.T) {
		ctx, root := suite.open(t)

		_, err := root.CreateDocument(ctx, "dup")
		require.NoError(t, err)
		_, err = root.CreateDocument(ctx, "dup")
		require.Error(t, err)
		assert.True(t, store.IsAlreadyExists(err), "expected already exists, got %v", err)

		_, err = root.CreateCollection(ctx, "dup")
		require.Error(t, err)
		assert.True(t, store.IsAlreadyExists(err), "expected already exists, got %v", err)
	})

	t.Run("InvalidName", func(t *testing.T) {
		ctx, root := suite.open(t)

		for _, name := range []string{"", ".", "..", "a/b"} {
			_, err := root.CreateDocument(ctx, name)
			require.Error(t, err, "name %q", name)
			code, ok := store.CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, store.ErrInvalidName, code)
		}
	})
}

// RunCollectionTests covers nested collections and child listing.
func (suite *StoreTestSuite) RunCollectionTests(t *testing.T) {
	ctx, root := suite.open(t)

	docs, err := root.CreateCollection(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, "/docs", docs.Path())

	sub, err := docs.CreateCollection(ctx, "sub")
	require.NoError(t, err)
	assert.Equal(t, "/docs/sub", sub.Path())

	doc, err := sub.CreateDocument(ctx, "x.txt")
	require.NoError(t, err)
	assert.Equal(t, "/docs/sub/x.txt", doc.Path())

	_, err = docs.CreateDocument(ctx, "y.txt")
	require.NoError(t, err)

	children, err := docs.Children(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sub", "y.txt"}, Names(children))

	item, err := docs.Child(ctx, "sub")
	require.NoError(t, err)
	_, ok := item.(store.Collection)
	assert.True(t, ok, "sub should be a collection")

	item, err = docs.Child(ctx, "y.txt")
	require.NoError(t, err)
	_, ok = item.(store.Document)
	assert.True(t, ok, "y.txt should be a document")
}

// RunDeleteTests covers deletion of documents and whole subtrees.
func (suite *StoreTestSuite) RunDeleteTests(t *testing.T) {
	t.Run("Document", func(t *testing.T) {
		ctx, root := suite.open(t)

		doc, err := root.CreateDocument(ctx, "gone.txt")
		require.NoError(t, err)
		WriteDocument(t, ctx, doc, []byte("bye"), false)

		require.NoError(t, root.Delete(ctx, doc))
		_, err = root.Child(ctx, "gone.txt")
		assert.True(t, store.IsNotFound(err), "expected not found, got %v", err)
	})

	t.Run("Subtree", func(t *testing.T) {
		ctx, root := suite.open(t)

		BuildTree(t, ctx, root)
		dir := LookupCollection(t, ctx, root, "tree")

		require.NoError(t, root.Delete(ctx, dir))
		_, err := root.Child(ctx, "tree")
		assert.True(t, store.IsNotFound(err), "expected not found, got %v", err)

		// The name is free again and the new collection starts empty
		again, err := root.CreateCollection(ctx, "tree")
		require.NoError(t, err)
		children, err := again.Children(ctx)
		require.NoError(t, err)
		assert.Empty(t, children)
	})
}

// RunCopyTests covers shallow and deep copies.
func (suite *StoreTestSuite) RunCopyTests(t *testing.T) {
	t.Run("Document", func(t *testing.T) {
		ctx, root := suite.open(t)

		doc, err := root.CreateDocument(ctx, "src.txt")
		require.NoError(t, err)
		WriteDocument(t, ctx, doc, []byte("payload"), false)

		dst, err := root.CreateCollection(ctx, "dst")
		require.NoError(t, err)

		// Document content is copied even for a shallow copy
		require.NoError(t, dst.CopyItemHere(ctx, doc, "copy.txt", false))

		copied := LookupDocument(t, ctx, dst, "copy.txt")
		assert.Equal(t, "/dst/copy.txt", copied.Path())
		assert.Equal(t, []byte("payload"), ReadDocument(t, ctx, copied))

		// The source is untouched
		assert.Equal(t, []byte("payload"), ReadDocument(t, ctx, LookupDocument(t, ctx, root, "src.txt")))
	})

	t.Run("ShallowCollection", func(t *testing.T) {
		ctx, root := suite.open(t)

		BuildTree(t, ctx, root)
		src := LookupCollection(t, ctx, root, "tree")

		require.NoError(t, root.CopyItemHere(ctx, src, "flat", false))

		flat := LookupCollection(t, ctx, root, "flat")
		children, err := flat.Children(ctx)
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("DeepCollection", func(t *testing.T) {
		ctx, root := suite.open(t)

		BuildTree(t, ctx, root)
		src := LookupCollection(t, ctx, root, "tree")

		require.NoError(t, root.CopyItemHere(ctx, src, "clone", true))

		clone := LookupCollection(t, ctx, root, "clone")
		children, err := clone.Children(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a.txt", "nested"}, Names(children))

		nested := LookupCollection(t, ctx, clone, "nested")
		b := LookupDocument(t, ctx, nested, "b.txt")
		assert.Equal(t, "/clone/nested/b.txt", b.Path())
		assert.Equal(t, []byte("bbb"), ReadDocument(t, ctx, b))

		// Mutating the clone leaves the source alone
		WriteDocument(t, ctx, b, []byte("changed"), false)
		orig := LookupDocument(t, ctx, LookupCollection(t, ctx, src, "nested"), "b.txt")
		assert.Equal(t, []byte("bbb"), ReadDocument(t, ctx, orig))
	})

	t.Run("NameTaken", func(t *testing.T) {
		ctx, root := suite.open(t)

		a, err := root.CreateDocument(ctx, "a")
		require.NoError(t, err)
		_, err = root.CreateDocument(ctx, "b")
		require.NoError(t, err)

		err = root.CopyItemHere(ctx, a, "b", true)
		require.Error(t, err)
		assert.True(t, store.IsAlreadyExists(err), "expected already exists, got %v", err)
	})
}

// RunMoveTests covers renames and moves across collections.
func (suite *StoreTestSuite) RunMoveTests(t *testing.T) {
	t.Run("Rename", func(t *testing.T) {
		ctx, root := suite.open(t)

		doc, err := root.CreateDocument(ctx, "old.txt")
		require.NoError(t, err)
		WriteDocument(t, ctx, doc, []byte("data"), false)

		require.NoError(t, root.MoveItemHere(ctx, doc, "new.txt"))

		_, err = root.Child(ctx, "old.txt")
		assert.True(t, store.IsNotFound(err), "expected not found, got %v", err)
		moved := LookupDocument(t, ctx, root, "new.txt")
		assert.Equal(t, "/new.txt", moved.Path())
		assert.Equal(t, []byte("data"), ReadDocument(t, ctx, moved))
	})

	t.Run("Subtree", func(t *testing.T) {
		ctx, root := suite.open(t)

		BuildTree(t, ctx, root)
		dst, err := root.CreateCollection(ctx, "dst")
		require.NoError(t, err)
		src := LookupCollection(t, ctx, root, "tree")

		require.NoError(t, dst.MoveItemHere(ctx, src, "moved"))

		_, err = root.Child(ctx, "tree")
		assert.True(t, store.IsNotFound(err), "expected not found, got %v", err)

		moved := LookupCollection(t, ctx, dst, "moved")
		assert.Equal(t, "/dst/moved", moved.Path())
		b := LookupDocument(t, ctx, LookupCollection(t, ctx, moved, "nested"), "b.txt")
		assert.Equal(t, "/dst/moved/nested/b.txt", b.Path())
		assert.Equal(t, []byte("bbb"), ReadDocument(t, ctx, b))
	})

	t.Run("NameTaken", func(t *testing.T) {
		ctx, root := suite.open(t)

		a, err := root.CreateDocument(ctx, "a")
		require.NoError(t, err)
		_, err = root.CreateCollection(ctx, "b")
		require.NoError(t, err)

		err = root.MoveItemHere(ctx, a, "b")
		require.Error(t, err)
		assert.True(t, store.IsAlreadyExists(err), "expected already exists, got %v", err)

		// The source stays where it was
		LookupDocument(t, ctx, root, "a")
	})
}

// RunConcurrencyTests checks that structural mutations on one collection
// do not lose updates.
func (suite *StoreTestSuite) RunConcurrencyTests(t *testing.T) {
	t.Run("DistinctNames", func(t *testing.T) {
		ctx, root := suite.open(t)

		const n = 16
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := root.CreateDocument(ctx, fmt.Sprintf("doc-%02d", i))
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
		children, err := root.Children(ctx)
		require.NoError(t, err)
		assert.Len(t, children, n)
	})

	t.Run("SameName", func(t *testing.T) {
		ctx, root := suite.open(t)

		const n = 8
		var wg sync.WaitGroup
		results := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := root.CreateCollection(ctx, "contended")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		created := 0
		for err := range results {
			if err == nil {
				created++
				continue
			}
			assert.True(t, store.IsAlreadyExists(err), "unexpected error %v", err)
		}
		assert.Equal(t, 1, created)
	})
}
