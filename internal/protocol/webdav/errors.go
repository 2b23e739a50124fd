package webdav

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/marmos91/dittodav/pkg/store"
)

// Error is a protocol failure carrying the HTTP status it maps to.
//
// Handlers return the most specific Error for the condition they detect.
// Errors are never mutated after construction; Engine.Process consumes each
// one exactly once to produce the status line and optional body.
type Error struct {
	// StatusCode is the HTTP status sent to the client
	StatusCode int

	// Message is the human-readable reason. When it differs from the
	// standard status text it is sent as a text/plain body.
	Message string

	// Err is the lower-level cause, if any
	Err error
}

// newError builds an Error. An empty message defaults to the status text.
func newError(code int, message string, cause error) *Error {
	if message == "" {
		message = http.StatusText(code)
	}
	return &Error{StatusCode: code, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Description returns the standard reason phrase for the status code.
func (e *Error) Description() string {
	return http.StatusText(e.StatusCode)
}

// HasCustomMessage reports whether Message carries more than the status text.
func (e *Error) HasCustomMessage() bool {
	return e.Message != e.Description()
}

// ============================================================================
// Taxonomy
// ============================================================================

func Unauthorized(message string, cause error) *Error {
	return newError(http.StatusUnauthorized, message, cause)
}

func Forbidden(message string, cause error) *Error {
	return newError(http.StatusForbidden, message, cause)
}

func NotFound(message string, cause error) *Error {
	return newError(http.StatusNotFound, message, cause)
}

func MethodNotAllowed(message string, cause error) *Error {
	return newError(http.StatusMethodNotAllowed, message, cause)
}

func Conflict(message string, cause error) *Error {
	return newError(http.StatusConflict, message, cause)
}

func LengthRequired(message string, cause error) *Error {
	return newError(http.StatusLengthRequired, message, cause)
}

func PreconditionFailed(message string, cause error) *Error {
	return newError(http.StatusPreconditionFailed, message, cause)
}

func UnsupportedMediaType(message string, cause error) *Error {
	return newError(http.StatusUnsupportedMediaType, message, cause)
}

func InternalServerError(message string, cause error) *Error {
	return newError(http.StatusInternalServerError, message, cause)
}

func NotImplemented(message string, cause error) *Error {
	return newError(http.StatusNotImplemented, message, cause)
}

// ============================================================================
// Translation
// ============================================================================

// errorClass records which rung of the translation ladder matched, so the
// pipeline can pick a log level.
type errorClass int

const (
	classProtocol errorClass = iota
	classUnauthorized
	classNotFound
	classNotImplemented
	classInternal
)

// Translate maps any error escaping a handler to an Error.
//
// The ladder is evaluated once, most specific first:
//  1. an *Error is returned unchanged
//  2. access denied from the store -> 401
//  3. missing item or missing collection from the store -> 404
//  4. not supported / not implemented -> 501
//  5. anything else -> 500
//
// Store-specific error types never leave this function.
func Translate(err error) *Error {
	werr, _ := translate(err)
	return werr
}

func translate(err error) (*Error, errorClass) {
	if err == nil {
		return nil, classProtocol
	}

	var werr *Error
	if errors.As(err, &werr) {
		return werr, classProtocol
	}

	if store.IsAccessDenied(err) {
		return Unauthorized("", err), classUnauthorized
	}

	if store.IsNotFound(err) || isNotCollection(err) {
		return NotFound("", err), classNotFound
	}

	if store.IsNotSupported(err) {
		return NotImplemented("", err), classNotImplemented
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return InternalServerError("request cancelled", err), classInternal
	}

	return InternalServerError("", err), classInternal
}

// isNotCollection covers stores reporting a missing directory in a path as a
// non-collection component (ENOTDIR).
func isNotCollection(err error) bool {
	code, ok := store.CodeOf(err)
	return ok && code == store.ErrNotCollection
}
