package webdav

import (
	"io"
	"net/http"

	"github.com/marmos91/dittodav/internal/logger"
	dav "github.com/marmos91/dittodav/internal/protocol/webdav"
	"github.com/marmos91/dittodav/internal/ratelimiter"
	"github.com/marmos91/dittodav/pkg/metrics"
)

// knownMethods bounds the method label of request metrics. Anything else is
// reported as "OTHER".
var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodPost:    true,
	dav.MethodMkcol:    true,
	dav.MethodCopy:     true,
	dav.MethodMove:     true,
	"PROPFIND":         true,
	"PROPPATCH":        true,
	"LOCK":             true,
	"UNLOCK":           true,
}

func methodLabel(method string) string {
	if knownMethods[method] {
		return method
	}
	return "OTHER"
}

// rateLimit rejects requests with 503 once the token bucket is empty.
func rateLimit(limiter *ratelimiter.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.Debug("WebDAV rate limit exceeded: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
				w.Header().Set("Retry-After", "1")
				w.Header().Set(dav.HeaderDAV, dav.DAVCapabilities)
				http.Error(w, "rate limit exceeded", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// instrument tracks in-flight requests and counts request entity bytes.
// Status, duration and response bytes come from the engine result in
// serveEngine.
func (a *WebDAVAdapter) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := methodLabel(r.Method)

		a.activeRequests.Add(1)
		a.metrics.RecordRequestStart(method)
		defer func() {
			a.metrics.RecordRequestEnd(method)
			a.activeRequests.Add(-1)
		}()

		var body *countingBody
		if r.Body != nil {
			body = &countingBody{ReadCloser: r.Body}
			r.Body = body
		}

		next.ServeHTTP(w, r)

		if body != nil {
			a.metrics.RecordBytesTransferred(method, metrics.DirectionIn, body.n)
		}
	})
}

// countingBody counts request entity bytes read by the engine.
type countingBody struct {
	io.ReadCloser
	n int64
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n += int64(n)
	return n, err
}
