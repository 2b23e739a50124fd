package adapter

import (
	"context"

	"github.com/marmos91/dittodav/pkg/store"
)

// Adapter is a protocol front end managed by DittoServer.
//
// Every adapter serves the same store.Store, so a document written through
// one adapter is immediately visible through all others.
//
// Lifecycle:
//  1. Creation: the adapter is built from its protocol-specific configuration
//  2. Store injection: SetStore() provides the shared backend
//  3. Startup: Serve() starts listening and blocks until shutdown
//  4. Shutdown: Stop() drains in-flight requests within a timeout
//
// Thread safety:
// SetStore() is called once before Serve(). Stop() may be called
// concurrently with Serve() and more than once.
type Adapter interface {
	// Serve starts the protocol server and blocks until ctx is cancelled or
	// an unrecoverable error occurs.
	//
	// On cancellation Serve stops accepting requests, waits for in-flight
	// requests (bounded by the adapter's shutdown timeout) and returns nil.
	// Returning early for any other reason is treated by DittoServer as a
	// fatal error that stops the remaining adapters.
	Serve(ctx context.Context) error

	// SetStore injects the shared store. Called exactly once, before Serve().
	SetStore(st store.Store)

	// Stop initiates graceful shutdown. ctx bounds how long in-flight
	// requests may take to finish.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name used in logs, e.g. "WebDAV".
	Protocol() string

	// Port returns the TCP port the adapter listens on.
	Port() int
}
