// Package webdav is the HTTP transport adapter of the WebDAV protocol engine.
//
// It owns the listener and the http.Server, turns every *http.Request into
// an engine Request and hands it to internal/protocol/webdav.Engine.
//
// Handler chain (outermost first):
//
//	gorilla CombinedLoggingHandler   (only when access_log is set)
//	chi RealIP                       client address from X-Forwarded-For / X-Real-IP
//	chi Recoverer                    panics become 500
//	rate limiter                     503 + Retry-After when the bucket is empty
//	instrument                       request metrics, in-flight tracking
//	engine                           every path, every method
package webdav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/marmos91/dittodav/internal/logger"
	dav "github.com/marmos91/dittodav/internal/protocol/webdav"
	"github.com/marmos91/dittodav/internal/ratelimiter"
	"github.com/marmos91/dittodav/pkg/metrics"
	"github.com/marmos91/dittodav/pkg/store"
	"golang.org/x/net/netutil"
)

// WebDAVAdapter serves the WebDAV engine over HTTP.
//
// Shutdown flow:
//  1. ctx cancelled or Stop() called
//  2. The listener is closed; no new requests are accepted
//  3. In-flight requests get up to ShutdownTimeout to finish
//  4. Remaining connections are closed forcibly
//
// Thread safety:
// All methods are safe for concurrent use. Serve may only be called once.
type WebDAVAdapter struct {
	config  WebDAVConfig
	metrics metrics.WebDAVMetrics
	limiter *ratelimiter.RateLimiter
	store   store.Store

	started      atomic.Bool
	shutdownOnce sync.Once
	shutdown     chan struct{}
	done         chan struct{}

	// boundPort is the port actually listened on
	boundPort atomic.Int32

	activeRequests atomic.Int32
}

// New creates a WebDAVAdapter. Call SetStore, then Serve.
//
// Parameters:
//   - config: adapter configuration; zero values are defaulted
//   - m: request metrics, nil for no metrics
//
// Panics if config validation fails.
func New(config WebDAVConfig, m metrics.WebDAVMetrics) *WebDAVAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid WebDAV config: %v", err))
	}
	if m == nil {
		m = metrics.NewNoopWebDAVMetrics()
	}

	a := &WebDAVAdapter{
		config:   config,
		metrics:  m,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if config.RateLimit.Enabled {
		a.limiter = ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
		logger.Debug("WebDAV rate limit: %d req/s, burst %d",
			config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
	}
	return a
}

// SetStore injects the shared store.
func (a *WebDAVAdapter) SetStore(st store.Store) {
	a.store = st
}

// Handler builds the HTTP handler chain without access logging.
func (a *WebDAVAdapter) Handler() (http.Handler, error) {
	h, _, err := a.newHandler(nil)
	return h, err
}

func (a *WebDAVAdapter) newHandler(accessLog io.Writer) (http.Handler, *dav.Engine, error) {
	if a.store == nil {
		return nil, nil, errors.New("webdav adapter: store not set")
	}
	engine, err := dav.NewEngine(a.store, a.config.Prefixes, nil)
	if err != nil {
		return nil, nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if a.limiter != nil {
		r.Use(rateLimit(a.limiter))
	}
	r.Use(a.instrument)

	serve := a.serveEngine(engine)
	r.Handle("/*", serve)
	// chi answers unknown verbs (MKCOL, COPY, LOCK...) through these
	r.MethodNotAllowed(serve)
	r.NotFound(serve)

	if accessLog != nil {
		return handlers.CombinedLoggingHandler(accessLog, r), engine, nil
	}
	return r, engine, nil
}

// serveEngine runs one request through the engine and records its result.
func (a *WebDAVAdapter) serveEngine(engine *dav.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFor(r)
		w.Header().Set(HeaderRequestID, id.RequestID)

		ctx := dav.WithIdentity(r.Context(), id)
		result := engine.Process(newHTTPRequest(ctx, r), newHTTPResponse(w))

		method := methodLabel(r.Method)
		a.metrics.RecordRequest(method, result.Status, result.Duration)
		a.metrics.RecordBytesTransferred(method, metrics.DirectionOut, result.BytesOut)
	}
}

// Serve listens on the configured port and serves until ctx is cancelled or
// Stop is called.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener fails or in-flight requests outlive ShutdownTimeout
func (a *WebDAVAdapter) Serve(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return errors.New("webdav adapter: already started")
	}
	defer close(a.done)

	accessLog, closeLog, err := openAccessLog(a.config.AccessLog)
	if err != nil {
		return err
	}
	defer closeLog()

	handler, engine, err := a.newHandler(accessLog)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", a.config.Port, err)
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		a.boundPort.Store(int32(tcpAddr.Port))
	}
	if a.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, a.config.MaxConnections)
		logger.Debug("WebDAV connection limit: %d", a.config.MaxConnections)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
		ReadTimeout:       a.config.ReadTimeout,
		WriteTimeout:      a.config.WriteTimeout,
		IdleTimeout:       a.config.IdleTimeout,
	}

	logger.Info("WebDAV server listening on port %d (prefixes: %s)",
		a.Port(), strings.Join(engine.Prefixes(), ", "))
	logger.Debug("WebDAV methods: %s", strings.Join(engine.Methods(), ", "))

	logCtx, stopLog := context.WithCancel(context.Background())
	defer stopLog()
	if a.config.MetricsLogInterval > 0 {
		go a.logMetrics(logCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logger.Info("WebDAV shutdown signal received: %v", ctx.Err())
	case <-a.shutdown:
		logger.Info("WebDAV shutdown requested")
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webdav server failed: %w", err)
	}

	return a.gracefulShutdown(srv)
}

// gracefulShutdown drains in-flight requests, then force-closes what is left.
func (a *WebDAVAdapter) gracefulShutdown(srv *http.Server) error {
	logger.Info("WebDAV graceful shutdown: waiting for %d active request(s) (timeout: %v)",
		a.activeRequests.Load(), a.config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("WebDAV shutdown timeout exceeded: %d request(s) still active, force-closing",
			a.activeRequests.Load())
		_ = srv.Close()
		return fmt.Errorf("webdav shutdown timeout exceeded: %w", err)
	}

	logger.Info("WebDAV graceful shutdown complete")
	return nil
}

// Stop initiates graceful shutdown and waits for Serve to return or ctx to
// be done. Safe to call more than once, and before Serve.
func (a *WebDAVAdapter) Stop(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		close(a.shutdown)
	})

	if !a.started.Load() {
		return nil
	}

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// logMetrics logs the number of in-flight requests every MetricsLogInterval.
func (a *WebDAVAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(a.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("WebDAV metrics: active_requests=%d", a.activeRequests.Load())
		}
	}
}

// ActiveRequests returns the number of requests currently being processed.
func (a *WebDAVAdapter) ActiveRequests() int32 {
	return a.activeRequests.Load()
}

// Port returns the TCP port. Once Serve is listening this is the bound port.
func (a *WebDAVAdapter) Port() int {
	if p := a.boundPort.Load(); p != 0 {
		return int(p)
	}
	return a.config.Port
}

// Protocol returns "WebDAV".
func (a *WebDAVAdapter) Protocol() string {
	return "WebDAV"
}

// openAccessLog resolves the access_log setting: "" disables, "-" is stderr,
// anything else is a file opened for appending.
func openAccessLog(dest string) (io.Writer, func(), error) {
	switch dest {
	case "":
		return nil, func() {}, nil
	case "-":
		return os.Stderr, func() {}, nil
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open access log %q: %w", dest, err)
	}
	return f, func() { _ = f.Close() }, nil
}
