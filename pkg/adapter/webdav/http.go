package webdav

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	dav "github.com/marmos91/dittodav/internal/protocol/webdav"
)

// HeaderRequestID carries the request id assigned to every request.
const HeaderRequestID = "X-Request-Id"

// httpRequest adapts *http.Request to dav.Request.
type httpRequest struct {
	r   *http.Request
	ctx context.Context
	url *url.URL
}

func newHTTPRequest(ctx context.Context, r *http.Request) *httpRequest {
	return &httpRequest{r: r, ctx: ctx, url: absoluteURL(r)}
}

func (h *httpRequest) Context() context.Context { return h.ctx }
func (h *httpRequest) Method() string           { return h.r.Method }
func (h *httpRequest) URL() *url.URL            { return h.url }
func (h *httpRequest) Header() http.Header      { return h.r.Header }
func (h *httpRequest) Body() io.Reader          { return h.r.Body }

// ContentLength reports -1 for chunked bodies.
func (h *httpRequest) ContentLength() int64 {
	return h.r.ContentLength
}

// absoluteURL rebuilds the absolute request URI from the server-side request.
// Path and RawPath are kept as received so escaped segments survive.
func absoluteURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if u.Host == "" {
		u.Host = r.Host
	}
	u.User = nil
	return &u
}

// httpResponse adapts http.ResponseWriter to dav.Response.
//
// The status line is held back until the first body write or Close, so the
// pipeline can replace a status set by a handler that later failed.
// net/http always sends the standard reason phrase; the description passed
// to SetStatus is only used for logging by the engine.
type httpResponse struct {
	w         http.ResponseWriter
	status    int
	committed bool
}

func newHTTPResponse(w http.ResponseWriter) *httpResponse {
	return &httpResponse{w: w}
}

func (h *httpResponse) SetStatus(code int, _ string) {
	if !h.committed {
		h.status = code
	}
}

func (h *httpResponse) Header() http.Header { return h.w.Header() }
func (h *httpResponse) Body() io.Writer     { return h }

func (h *httpResponse) Write(p []byte) (int, error) {
	h.commit()
	return h.w.Write(p)
}

func (h *httpResponse) Close() error {
	h.commit()
	return nil
}

func (h *httpResponse) commit() {
	if h.committed {
		return
	}
	h.committed = true
	if h.status == 0 {
		h.status = http.StatusOK
	}
	h.w.WriteHeader(h.status)
}

// identityFor builds the caller identity of r. An incoming X-Request-Id is
// reused, otherwise a random uuid is assigned.
func identityFor(r *http.Request) dav.Identity {
	id := dav.Identity{
		ClientAddr: r.RemoteAddr,
		RequestID:  r.Header.Get(HeaderRequestID),
	}
	if user, _, ok := r.BasicAuth(); ok {
		id.User = user
	}
	if id.RequestID == "" {
		id.RequestID = uuid.NewString()
	}
	return id
}
