package testing

import (
	"context"
	"io"
	"testing"

	"github.com/marmos91/dittodav/pkg/store"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Helper Functions
// ============================================================================

// WriteDocument replaces (or appends to) doc's content and closes the stream.
func WriteDocument(t *testing.T, ctx context.Context, doc store.Document, data []byte, append bool) {
	t.Helper()

	w, err := doc.OpenWrite(ctx, append)
	require.NoError(t, err)

	_, err = w.Write(data)
	if err != nil {
		_ = w.Close()
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

// ReadDocument returns doc's full content.
func ReadDocument(t *testing.T, ctx context.Context, doc store.Document) []byte {
	t.Helper()

	r, err := doc.OpenRead(ctx)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

// LookupDocument fetches a child that must be a document.
func LookupDocument(t *testing.T, ctx context.Context, parent store.Collection, name string) store.Document {
	t.Helper()

	item, err := parent.Child(ctx, name)
	require.NoError(t, err)
	doc, ok := item.(store.Document)
	require.True(t, ok, "%s is not a document", item.Path())
	return doc
}

// LookupCollection fetches a child that must be a collection.
func LookupCollection(t *testing.T, ctx context.Context, parent store.Collection, name string) store.Collection {
	t.Helper()

	item, err := parent.Child(ctx, name)
	require.NoError(t, err)
	col, ok := item.(store.Collection)
	require.True(t, ok, "%s is not a collection", item.Path())
	return col
}

// BuildTree creates this layout under parent:
//
//	tree/
//	  a.txt     "aaa"
//	  nested/
//	    b.txt   "bbb"
func BuildTree(t *testing.T, ctx context.Context, parent store.Collection) {
	t.Helper()

	tree, err := parent.CreateCollection(ctx, "tree")
	require.NoError(t, err)

	a, err := tree.CreateDocument(ctx, "a.txt")
	require.NoError(t, err)
	WriteDocument(t, ctx, a, []byte("aaa"), false)

	nested, err := tree.CreateCollection(ctx, "nested")
	require.NoError(t, err)

	b, err := nested.CreateDocument(ctx, "b.txt")
	require.NoError(t, err)
	WriteDocument(t, ctx, b, []byte("bbb"), false)
}

// Names returns the names of items.
func Names(items []store.Item) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name())
	}
	return names
}

// Pattern returns n bytes of a repeating, position-dependent pattern.
func Pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}
