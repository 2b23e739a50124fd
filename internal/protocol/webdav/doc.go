// Package webdav implements the WebDAV protocol engine.
//
// # Architecture Overview
//
// The engine sits between a transport adapter and a store.Store:
//
//   - Header Layer (headers.go): Depth, Overwrite, Destination and Timeout parsing
//   - Resolver Layer (resolver.go): request URI + server prefixes -> store item
//   - Error Layer (errors.go): the closed set of protocol errors and the
//     translation ladder for store and system failures
//   - Handler Layer (get.go, put.go, ...): one MethodHandler per HTTP method
//   - Dispatch Layer (dispatch.go): method name -> handler registry
//   - Pipeline Layer (pipeline.go): DAV header, dispatch, error translation,
//     response finalization and logging
//
// The engine never touches net/http directly. Transports implement Request and
// Response (request.go) and hand each request to Engine.Process.
//
// # Request Flow
//
//	adapter -> Engine.Process -> Registry.Lookup -> MethodHandler.Handle
//	                                                   |
//	                                                   +-> ResolveItem / ResolveParentCollection
//	                                                   +-> store.Collection / store.Document
//
// Handlers return errors instead of writing error responses. Engine.Process is
// the only place where an error becomes a status line.
//
// # Thread Safety
//
// Handlers keep no state between requests, so an Engine can serve any number
// of requests concurrently. Serialization of structural mutations is the
// store's job (see store.LockTable); the engine performs no locking of its own.
//
// # Request-Scoped Data
//
// The caller identity (Identity) and the normalized Timeout header travel on
// the request context. Nothing is stored in package-level variables.
package webdav
