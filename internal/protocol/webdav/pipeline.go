package webdav

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/store"
)

// Engine runs the request pipeline over one store and one set of server
// roots.
//
// For every request it:
//  1. Sets the DAV capability header
//  2. Puts the normalized Timeout header on the request context
//  3. Dispatches to the registered MethodHandler
//  4. Translates any failure into exactly one status line (+ optional body)
//  5. Closes the response and logs method, URL, status and description
//
// Thread Safety:
// An Engine holds no per-request state and is safe for concurrent use.
type Engine struct {
	store    store.Store
	prefixes []string
	registry *Registry
}

// Result summarizes one processed request for the transport's metrics.
//
// Status is the status sent on the wire. When a handler fails after entity
// bytes went out, Status keeps the committed success code and Err holds the
// failure.
type Result struct {
	Status      int
	Description string
	BytesOut    int64
	Duration    time.Duration
	Err         error
}

// NewEngine creates an Engine.
//
// Parameters:
//   - st: the store every request operates on
//   - prefixes: server roots, absolute URLs or absolute paths, at least one
//   - registry: method handlers, nil selects NewDefaultRegistry
func NewEngine(st store.Store, prefixes []string, registry *Registry) (*Engine, error) {
	if st == nil {
		return nil, errors.New("webdav: store is required")
	}
	if len(prefixes) == 0 {
		return nil, errors.New("webdav: at least one prefix is required")
	}
	if registry == nil {
		registry = NewDefaultRegistry()
	}

	return &Engine{
		store:    st,
		prefixes: append([]string(nil), prefixes...),
		registry: registry,
	}, nil
}

// Prefixes returns the server roots the engine resolves against.
func (e *Engine) Prefixes() []string {
	return append([]string(nil), e.prefixes...)
}

// Methods returns the method names the engine dispatches, sorted.
func (e *Engine) Methods() []string {
	return e.registry.Methods()
}

// Process handles one request end to end. It never returns an error: every
// failure is turned into a response.
func (e *Engine) Process(req Request, resp Response) Result {
	start := time.Now()
	method := req.Method()
	uri := req.URL().String()

	ctx := req.Context()
	reqID := ""
	if id, ok := IdentityFromContext(ctx); ok {
		reqID = id.RequestID
	}

	logger.Debug("%s: %s id=%s", method, uri, reqID)

	ctx = withTimeout(ctx, ParseTimeout(req.Header()))
	req = withContext(req, ctx)

	rec := &recordingResponse{Response: resp}
	rec.Header().Set(HeaderDAV, DAVCapabilities)

	err := e.dispatch(req, rec)
	if err != nil {
		e.writeError(method, uri, rec, err)
	}

	if cerr := resp.Close(); cerr != nil {
		logger.Debug("%s: %s: closing response: %v", method, uri, cerr)
	}

	result := Result{
		Status:      rec.status,
		Description: rec.description,
		BytesOut:    rec.written,
		Duration:    time.Since(start),
		Err:         err,
	}
	if result.Status == 0 {
		result.Status = http.StatusOK
		result.Description = http.StatusText(http.StatusOK)
	}

	if err != nil && rec.written > 0 {
		logger.Warn("%s: %s: failed after %d bytes were sent: %v", method, uri, rec.written, err)
	}
	logger.Info("%d %s: %s: %s id=%s duration=%s",
		result.Status, result.Description, method, uri, reqID, result.Duration)
	return result
}

func (e *Engine) dispatch(req Request, resp Response) error {
	handler, err := e.registry.Lookup(req.Method())
	if err != nil {
		return err
	}
	return handler.Handle(req, resp, e.store, e.prefixes)
}

// writeError applies the translation ladder and writes the status line. The
// message becomes a UTF-8 text body when it says more than the status text
// and no entity bytes were sent yet.
func (e *Engine) writeError(method, uri string, resp *recordingResponse, err error) {
	werr, class := translate(err)

	switch class {
	case classNotFound:
		logger.Warn("%s: %s: not found: %v", method, uri, err)
	case classUnauthorized:
		logger.Info("%s: %s: unauthorized: %v", method, uri, err)
	case classNotImplemented:
		logger.Warn("%s: %s: not implemented: %v", method, uri, err)
	case classInternal:
		logger.Error("%s: %s: %v", method, uri, err)
	default:
		if werr.StatusCode >= 500 {
			logger.Error("%s: %s: %v", method, uri, werr)
		} else {
			logger.Debug("%s: %s: %v", method, uri, werr)
		}
	}

	resp.SetStatus(werr.StatusCode, werr.Description())
	if !werr.HasCustomMessage() || resp.written > 0 {
		return
	}

	resp.Header().Set(HeaderContentType, "text/plain; charset=utf-8")
	resp.Header().Set(HeaderContentLength, strconv.Itoa(len(werr.Message)))
	if _, err := io.WriteString(resp.Body(), werr.Message); err != nil {
		logger.Debug("%s: %s: writing error body: %v", method, uri, err)
	}
}
