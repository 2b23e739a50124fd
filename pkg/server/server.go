package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittodav/internal/logger"
	"github.com/marmos91/dittodav/pkg/adapter"
	"github.com/marmos91/dittodav/pkg/store"
)

// DefaultStopTimeout bounds the Stop() calls issued during shutdown.
const DefaultStopTimeout = 30 * time.Second

// DittoServer manages the lifecycle of the protocol adapters that share one
// document store.
//
// Lifecycle:
//  1. Creation: New() with the store
//  2. Registration: AddAdapter() for each protocol
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation, or the first adapter failure, stops
//     every adapter in reverse registration order
//
// Thread safety:
// DittoServer is safe for concurrent use. Serve() may only be called once;
// AddAdapter() is rejected once Serve() has started.
//
// Example usage:
//
//	srv := server.New(st)
//	if err := srv.AddAdapter(webdav.New(davConfig, nil)); err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    return err
//	}
type DittoServer struct {
	store store.Store

	mu       sync.RWMutex
	adapters []adapter.Adapter

	served      atomic.Bool
	stopTimeout time.Duration
}

// Option configures a DittoServer.
type Option func(*DittoServer)

// WithStopTimeout overrides DefaultStopTimeout.
func WithStopTimeout(d time.Duration) Option {
	return func(s *DittoServer) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// New creates a DittoServer serving st through every adapter added later.
//
// Panics if st is nil (programmer error).
func New(st store.Store, opts ...Option) *DittoServer {
	if st == nil {
		panic("store cannot be nil")
	}

	s := &DittoServer{
		store:       st,
		adapters:    make([]adapter.Adapter, 0, 2),
		stopTimeout: DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddAdapter injects the shared store into a and registers it.
//
// Each adapter must implement a different protocol and listen on a different
// port. Port 0 (OS-assigned) never conflicts.
//
// Returns:
//   - error if the protocol or port is already taken, or Serve() has started
//
// Panics if a is nil.
func (s *DittoServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served.Load() {
		return errors.New("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetStore(s.store)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve starts all registered adapters and blocks until ctx is cancelled or
// an adapter fails.
//
// On either event every adapter receives Stop() in reverse registration
// order, and Serve waits for all of them to return.
//
// Returns:
//   - ctx.Err() when shutdown was triggered by the context
//   - the adapter's error, wrapped with its protocol, when one failed
//   - nil when every adapter returned on its own without error
func (s *DittoServer) Serve(ctx context.Context) error {
	if !s.served.CompareAndSwap(false, true) {
		return errors.New("Serve() has already been called on this server instance")
	}

	adapters := s.Adapters()
	if len(adapters) == 0 {
		return errors.New("no adapters registered; call AddAdapter() before Serve()")
	}

	logger.Info("Starting DittoDAV server with %d adapter(s)", len(adapters))

	// Buffered so failing adapters never block
	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(ctx)
			switch {
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
			case errors.Is(err, context.Canceled) || ctx.Err() != nil:
				logger.Debug("%s adapter stopped on cancellation: %v", protocol, err)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
			}
			errChan <- adapterError{protocol: protocol, err: err}
		}(adp)
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAllAdapters(adapters)
		shutdownErr = ctx.Err()

	case res := <-errChan:
		if res.err != nil {
			logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters", res.protocol, res.err)
			shutdownErr = fmt.Errorf("%s adapter error: %w", res.protocol, res.err)
		}
		s.stopAllAdapters(adapters)
	}

	<-allDone
	logger.Info("DittoDAV server stopped")

	return shutdownErr
}

// adapterError pairs an adapter protocol name with the result of its Serve.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters calls Stop() on every adapter in reverse registration
// order. Errors are logged; the remaining adapters are still stopped.
func (s *DittoServer) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, adp.Port())
		if err := adp.Stop(ctx); err != nil {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		}
	}
}

// Adapters returns a copy of the registered adapters.
func (s *DittoServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

// Store returns the shared store.
func (s *DittoServer) Store() store.Store {
	return s.store
}
