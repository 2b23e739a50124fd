package metrics

import "time"

// Direction labels for RecordBytesTransferred.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// WebDAVMetrics provides observability for WebDAV adapter requests.
//
// Implementations can collect metrics about requests, in-flight load and
// throughput. This interface is optional - if not provided to the WebDAV
// adapter, a no-op implementation is used with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewWebDAVMetrics()
//	adapter := webdav.New(config, m)
//
//	// Without metrics (no-op)
//	adapter := webdav.New(config, nil)
type WebDAVMetrics interface {
	// RecordRequest records a completed request.
	//
	// Parameters:
	//   - method: HTTP method (e.g., "GET", "MKCOL")
	//   - status: Final HTTP status code
	//   - duration: Time taken to process the request
	RecordRequest(method string, status int, duration time.Duration)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart(method string)

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd(method string)

	// RecordBytesTransferred records entity bytes received or sent.
	//
	// Parameters:
	//   - method: HTTP method
	//   - direction: DirectionIn (request bodies) or DirectionOut (response bodies)
	//   - bytes: Number of bytes transferred
	RecordBytesTransferred(method string, direction string, bytes int64)
}

// NewNoopWebDAVMetrics returns a WebDAVMetrics that records nothing.
func NewNoopWebDAVMetrics() WebDAVMetrics {
	return noopWebDAVMetrics{}
}

// noopWebDAVMetrics is a no-op implementation of WebDAVMetrics with zero overhead.
type noopWebDAVMetrics struct{}

func (noopWebDAVMetrics) RecordRequest(string, int, time.Duration)       {}
func (noopWebDAVMetrics) RecordRequestStart(string)                      {}
func (noopWebDAVMetrics) RecordRequestEnd(string)                        {}
func (noopWebDAVMetrics) RecordBytesTransferred(string, string, int64)   {}
