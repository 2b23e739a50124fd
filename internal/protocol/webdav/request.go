package webdav

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Request is the transport-neutral view of an incoming request.
//
// Transport adapters implement it once; handlers never see the concrete type.
type Request interface {
	// Context carries cancellation, the caller Identity and the normalized
	// Timeout value.
	Context() context.Context

	// Method is the HTTP method, as sent by the client.
	Method() string

	// URL is the absolute request URI (scheme, host, escaped path).
	URL() *url.URL

	// Header is the read-only, case-insensitive header bag.
	Header() http.Header

	// Body is the request entity. It may be nil when there is none.
	Body() io.Reader

	// ContentLength is the declared entity length, or -1 when unknown.
	ContentLength() int64
}

// Response is the transport-neutral response sink.
//
// Headers and status are committed by the first Body write or by Close.
// SetStatus after that point has no effect on the wire.
type Response interface {
	// SetStatus sets the status code and reason phrase.
	SetStatus(code int, description string)

	// Header returns the mutable response header map.
	Header() http.Header

	// Body returns the entity writer.
	Body() io.Writer

	// Close commits the response.
	Close() error
}

// scopedRequest overrides the context of a Request.
type scopedRequest struct {
	Request
	ctx context.Context
}

func (r *scopedRequest) Context() context.Context {
	return r.ctx
}

// withContext returns req with ctx as its context.
func withContext(req Request, ctx context.Context) Request {
	if sr, ok := req.(*scopedRequest); ok {
		return &scopedRequest{Request: sr.Request, ctx: ctx}
	}
	return &scopedRequest{Request: req, ctx: ctx}
}

// sendStatus writes a body-less status line with the standard reason phrase.
func sendStatus(resp Response, code int) {
	resp.SetStatus(code, http.StatusText(code))
}

// recordingResponse tracks the status that reaches the client and counts the
// entity bytes written. Transports fix the status line on the first body
// write, so a status set after that is forwarded but not recorded.
type recordingResponse struct {
	Response
	status      int
	description string
	written     int64
}

func (r *recordingResponse) SetStatus(code int, description string) {
	if r.written == 0 {
		r.status = code
		r.description = description
	}
	r.Response.SetStatus(code, description)
}

func (r *recordingResponse) Body() io.Writer {
	return countingWriter{w: r.Response.Body(), n: &r.written}
}

type countingWriter struct {
	w io.Writer
	n *int64
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	*c.n += int64(n)
	return n, err
}
