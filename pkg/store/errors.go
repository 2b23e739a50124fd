package store

import (
	"errors"
	"io/fs"
)

// StoreError represents a domain error from store operations.
//
// These are business logic errors (item not found, access denied, etc.) as
// opposed to infrastructure errors. The WebDAV engine translates the codes
// into status codes; store-specific types never reach clients.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the store path related to the error (if applicable)
	Path string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the io/fs sentinels that correspond to a code,
// so store errors and raw filesystem errors are interchangeable for callers.
func (e *StoreError) Is(target error) bool {
	switch target {
	case fs.ErrNotExist:
		return e.Code == ErrNotFound
	case fs.ErrPermission:
		return e.Code == ErrAccessDenied
	case fs.ErrExist:
		return e.Code == ErrAlreadyExists
	case errors.ErrUnsupported:
		return e.Code == ErrNotSupported
	}
	return false
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested item doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrAccessDenied indicates the caller may not access the item
	ErrAccessDenied

	// ErrAlreadyExists indicates a child with the name already exists
	ErrAlreadyExists

	// ErrNotCollection indicates the operation expected a collection
	ErrNotCollection

	// ErrNotDocument indicates the operation expected a document
	ErrNotDocument

	// ErrNotSupported indicates the backend cannot perform the operation
	ErrNotSupported

	// ErrInvalidName indicates an empty or malformed child name
	ErrInvalidName

	// ErrIO indicates a backend I/O failure
	ErrIO

	// ErrNoSpace indicates the store's capacity limit was reached
	ErrNoSpace
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not found"
	case ErrAccessDenied:
		return "access denied"
	case ErrAlreadyExists:
		return "already exists"
	case ErrNotCollection:
		return "not a collection"
	case ErrNotDocument:
		return "not a document"
	case ErrNotSupported:
		return "not supported"
	case ErrInvalidName:
		return "invalid name"
	case ErrIO:
		return "i/o error"
	case ErrNoSpace:
		return "no space left in store"
	default:
		return "unknown store error"
	}
}

// NewError builds a StoreError for path.
func NewError(code ErrorCode, path string, cause error) *StoreError {
	return &StoreError{Code: code, Message: code.String(), Path: path, Err: cause}
}

// CodeOf returns the code of the first StoreError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err means the item does not exist.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, fs.ErrNotExist)
}

// IsAccessDenied reports whether err means access to the item was refused.
func IsAccessDenied(err error) bool {
	return err != nil && errors.Is(err, fs.ErrPermission)
}

// IsAlreadyExists reports whether err means the name is already taken.
func IsAlreadyExists(err error) bool {
	return err != nil && errors.Is(err, fs.ErrExist)
}

// IsNotSupported reports whether err means the operation is not implemented.
func IsNotSupported(err error) bool {
	return err != nil && errors.Is(err, errors.ErrUnsupported)
}
