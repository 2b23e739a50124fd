package webdav

import (
	"errors"
	"fmt"
	"sort"

	"github.com/marmos91/dittodav/pkg/store"
)

// MethodHandler processes every request for the methods it names.
//
// Handle either writes a success status (and body) to resp and returns nil,
// or returns an error without writing a status. Error responses are produced
// by Engine.Process.
type MethodHandler interface {
	// Names lists the HTTP methods this handler serves.
	Names() []string

	// Handle processes one request against st. prefixes are the server roots
	// used to resolve request and Destination URIs.
	Handle(req Request, resp Response, st store.Store, prefixes []string) error
}

// Registry maps method names to handlers. It is immutable once built and
// safe for concurrent lookups.
type Registry struct {
	handlers map[string]MethodHandler
}

// NewRegistry builds a registry from handlers.
//
// Returns an error if:
//   - handlers is empty
//   - any handler is nil or names no method
//   - two handlers claim the same method name
func NewRegistry(handlers ...MethodHandler) (*Registry, error) {
	if len(handlers) == 0 {
		return nil, errors.New("webdav: at least one method handler is required")
	}

	r := &Registry{handlers: make(map[string]MethodHandler)}
	for i, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("webdav: method handler %d is nil", i)
		}

		names := h.Names()
		if len(names) == 0 {
			return nil, fmt.Errorf("webdav: method handler %T serves no method", h)
		}

		for _, name := range names {
			if prev, ok := r.handlers[name]; ok {
				return nil, fmt.Errorf("webdav: method %s registered by both %T and %T", name, prev, h)
			}
			r.handlers[name] = h
		}
	}
	return r, nil
}

// Lookup returns the handler for method.
//
// Returns:
//   - MethodNotAllowed (405) naming the method if nothing serves it
func (r *Registry) Lookup(method string) (MethodHandler, error) {
	h, ok := r.handlers[method]
	if !ok {
		return nil, MethodNotAllowed(fmt.Sprintf("method %s is not supported", method), nil)
	}
	return h, nil
}

// Methods returns the registered method names in sorted order.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultHandlers returns one instance of every built-in handler.
//
// PROPFIND, PROPPATCH, LOCK and UNLOCK are advertised by OPTIONS but have no
// handler here; requests for them are answered with 405 by the dispatcher.
func DefaultHandlers() []MethodHandler {
	return []MethodHandler{
		&GetHandler{},
		&HeadHandler{},
		&PutHandler{},
		&DeleteHandler{},
		&MkcolHandler{},
		&CopyHandler{},
		&MoveHandler{},
		&OptionsHandler{},
	}
}

// NewDefaultRegistry builds a Registry over DefaultHandlers.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultHandlers()...)
	if err != nil {
		panic(err)
	}
	return r
}
