package memory

import (
	"context"
	"testing"

	"github.com/marmos91/dittodav/pkg/store"
	storetesting "github.com/marmos91/dittodav/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg MemoryStoreConfig) *MemoryStore {
	t.Helper()
	s, err := NewMemoryStore(context.Background(), cfg)
	require.NoError(t, err)
	return s
}

func TestMemoryStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			return newTestStore(t, MemoryStoreConfig{})
		},
	}
	suite.Run(t)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore(ctx, MemoryStoreConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_Capacity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, MemoryStoreConfig{MaxSizeBytes: 10})
	root, err := s.Root(ctx)
	require.NoError(t, err)

	doc, err := root.CreateDocument(ctx, "a")
	require.NoError(t, err)
	storetesting.WriteDocument(t, ctx, doc, []byte("12345678"), false)
	assert.Equal(t, int64(8), s.UsedBytes())

	t.Run("OverCapacityWriteFails", func(t *testing.T) {
		w, err := doc.OpenWrite(ctx, true)
		require.NoError(t, err)
		_, err = w.Write([]byte("abc"))
		require.NoError(t, err)

		err = w.Close()
		code, ok := store.CodeOf(err)
		require.True(t, ok, "expected store error, got %v", err)
		assert.Equal(t, store.ErrNoSpace, code)

		// Content and accounting are unchanged
		assert.Equal(t, []byte("12345678"), storetesting.ReadDocument(t, ctx, doc))
		assert.Equal(t, int64(8), s.UsedBytes())
	})

	t.Run("CopyOverCapacityFails", func(t *testing.T) {
		err := root.CopyItemHere(ctx, doc, "b", false)
		code, ok := store.CodeOf(err)
		require.True(t, ok, "expected store error, got %v", err)
		assert.Equal(t, store.ErrNoSpace, code)
	})

	t.Run("DeleteFreesSpace", func(t *testing.T) {
		require.NoError(t, root.Delete(ctx, doc))
		assert.Equal(t, int64(0), s.UsedBytes())
	})
}

func TestMemoryStore_ReaderSeesSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, MemoryStoreConfig{})
	root, err := s.Root(ctx)
	require.NoError(t, err)

	doc, err := root.CreateDocument(ctx, "snap")
	require.NoError(t, err)
	storetesting.WriteDocument(t, ctx, doc, []byte("before"), false)

	r, err := doc.OpenRead(ctx)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	storetesting.WriteDocument(t, ctx, doc, []byte("after"), false)

	buf := make([]byte, 16)
	n, _ := r.Read(buf)
	assert.Equal(t, "before", string(buf[:n]))
}

func TestMemoryStore_IntoItself(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, MemoryStoreConfig{})
	root, err := s.Root(ctx)
	require.NoError(t, err)

	parent, err := root.CreateCollection(ctx, "p")
	require.NoError(t, err)
	child, err := parent.CreateCollection(ctx, "c")
	require.NoError(t, err)

	err = child.MoveItemHere(ctx, parent, "loop")
	code, _ := store.CodeOf(err)
	assert.Equal(t, store.ErrInvalidName, code)

	err = child.CopyItemHere(ctx, parent, "loop", true)
	code, _ = store.CodeOf(err)
	assert.Equal(t, store.ErrInvalidName, code)
}

func TestMemoryStore_ForeignItem(t *testing.T) {
	ctx := context.Background()
	a := newTestStore(t, MemoryStoreConfig{})
	b := newTestStore(t, MemoryStoreConfig{})

	rootA, err := a.Root(ctx)
	require.NoError(t, err)
	rootB, err := b.Root(ctx)
	require.NoError(t, err)

	doc, err := rootA.CreateDocument(ctx, "x")
	require.NoError(t, err)

	err = rootB.CopyItemHere(ctx, doc, "x", false)
	assert.True(t, store.IsNotSupported(err), "expected not supported, got %v", err)
}
