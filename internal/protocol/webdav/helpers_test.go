package webdav

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/marmos91/dittodav/pkg/store"
	"github.com/marmos91/dittodav/pkg/store/memory"
	"github.com/stretchr/testify/require"
)

const testHost = "http://localhost:8080"

// testRequest is an in-memory Request.
type testRequest struct {
	ctx    context.Context
	method string
	url    *url.URL
	header http.Header
	body   io.Reader
	length int64
}

func (r *testRequest) Context() context.Context { return r.ctx }
func (r *testRequest) Method() string           { return r.method }
func (r *testRequest) URL() *url.URL            { return r.url }
func (r *testRequest) Header() http.Header      { return r.header }
func (r *testRequest) Body() io.Reader          { return r.body }
func (r *testRequest) ContentLength() int64     { return r.length }

// newRequest builds a request for target, a path on testHost or an absolute
// URL. The body length is declared when body is non-nil.
func newRequest(t *testing.T, method, target string, body []byte) *testRequest {
	t.Helper()

	if strings.HasPrefix(target, "/") {
		target = testHost + target
	}
	u, err := url.Parse(target)
	require.NoError(t, err)

	req := &testRequest{
		ctx:    context.Background(),
		method: method,
		url:    u,
		header: make(http.Header),
	}
	if body != nil {
		req.body = bytes.NewReader(body)
		req.length = int64(len(body))
	}
	return req
}

// testResponse records everything written to it.
type testResponse struct {
	status      int
	description string
	header      http.Header
	body        bytes.Buffer
	closed      int
}

func newResponse() *testResponse {
	return &testResponse{header: make(http.Header)}
}

func (r *testResponse) SetStatus(code int, description string) {
	r.status = code
	r.description = description
}

func (r *testResponse) Header() http.Header { return r.header }
func (r *testResponse) Body() io.Writer     { return &r.body }

func (r *testResponse) Close() error {
	r.closed++
	return nil
}

// fixture is an Engine over a fresh memory store.
type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  store.Store
	root   store.Collection
	engine *Engine
}

func newFixture(t *testing.T, prefixes ...string) *fixture {
	t.Helper()

	if len(prefixes) == 0 {
		prefixes = []string{"/"}
	}

	ctx := context.Background()
	st, err := memory.NewMemoryStore(ctx, memory.MemoryStoreConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	root, err := st.Root(ctx)
	require.NoError(t, err)

	engine, err := NewEngine(st, prefixes, nil)
	require.NoError(t, err)

	return &fixture{t: t, ctx: ctx, store: st, root: root, engine: engine}
}

// do sends one request through the engine. headers are name/value pairs.
func (f *fixture) do(method, target string, body []byte, headers ...string) *testResponse {
	f.t.Helper()

	req := newRequest(f.t, method, target, body)
	for i := 0; i+1 < len(headers); i += 2 {
		req.header.Set(headers[i], headers[i+1])
	}

	resp := newResponse()
	f.engine.Process(req, resp)
	require.Equal(f.t, 1, resp.closed, "response must be closed exactly once")
	return resp
}

// handle runs a handler directly, bypassing the pipeline.
func (f *fixture) handle(h MethodHandler, req *testRequest) (*testResponse, error) {
	return f.handleOn(f.store, h, req)
}

// handleOn runs a handler directly against st.
func (f *fixture) handleOn(st store.Store, h MethodHandler, req *testRequest) (*testResponse, error) {
	resp := newResponse()
	err := h.Handle(req, resp, st, f.engine.prefixes)
	return resp, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	return Translate(err).StatusCode
}

// failingStore is a Store whose root refuses everything with err.
type failingStore struct {
	err error
}

func (s *failingStore) Root(context.Context) (store.Collection, error) { return nil, s.err }
func (s *failingStore) Close() error                                     { return nil }
