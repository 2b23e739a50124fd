package webdav

import (
	"net/http"
	"net/url"
	"strconv"
)

// ============================================================================
// Header Names
// ============================================================================

const (
	HeaderDAV           = "DAV"
	HeaderDepth         = "Depth"
	HeaderDestination   = "Destination"
	HeaderOverwrite     = "Overwrite"
	HeaderTimeout       = "Timeout"
	HeaderAllow         = "Allow"
	HeaderPublic        = "Public"
	HeaderContentType   = "Content-Type"
	HeaderLastModified  = "Last-Modified"
	HeaderContentLength = "Content-Length"
)

// DAVCapabilities is the compliance class list sent on every response.
const DAVCapabilities = "1,2,1#extend"

// DefaultTimeout replaces infinite lock timeouts (four days).
const DefaultTimeout = "Second-345600"

// infiniteTimeoutSentinel is the literal some clients send for "no timeout".
const infiniteTimeoutSentinel = "Infinite, Second-4100000000"

// ============================================================================
// Depth
// ============================================================================

// Depth is the parsed value of the Depth header.
type Depth int

const (
	DepthZero     Depth = 0
	DepthOne      Depth = 1
	DepthInfinity Depth = -1
)

func (d Depth) String() string {
	switch d {
	case DepthZero:
		return "0"
	case DepthOne:
		return "1"
	default:
		return "infinity"
	}
}

// ParseDepth returns the Depth header value.
//
// Only "0" and "1" are recognized. A missing header, "infinity" and any
// value that is not 0 or 1 yield DepthInfinity. It never fails.
func ParseDepth(h http.Header) Depth {
	raw := h.Get(HeaderDepth)
	if raw == "" || raw == "infinity" {
		return DepthInfinity
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return DepthInfinity
	}

	switch v {
	case 0:
		return DepthZero
	case 1:
		return DepthOne
	default:
		return DepthInfinity
	}
}

// ParseOverwrite reports whether the Overwrite header is exactly "T".
func ParseOverwrite(h http.Header) bool {
	return h.Get(HeaderOverwrite) == "T"
}

// ParseDestination returns the absolute destination URI of a COPY or MOVE.
//
// A relative Destination (for example "/dav/b.txt") is resolved against base,
// the absolute request URL.
//
// Returns:
//   - Conflict (409) if the header is missing, empty or not a valid URI
func ParseDestination(h http.Header, base *url.URL) (*url.URL, error) {
	raw := h.Get(HeaderDestination)
	if raw == "" {
		return nil, Conflict("missing Destination header", nil)
	}

	dest, err := url.Parse(raw)
	if err != nil {
		return nil, Conflict("invalid Destination header", err)
	}

	if !dest.IsAbs() && base != nil {
		dest = base.ResolveReference(dest)
	}
	return dest, nil
}

// ParseTimeout returns the Timeout header value.
//
// Missing, "infinity" and "Infinite, Second-4100000000" are normalized to
// DefaultTimeout. Every other value is returned unchanged. It never fails.
func ParseTimeout(h http.Header) string {
	raw := h.Get(HeaderTimeout)
	if raw == "" || raw == "infinity" || raw == infiniteTimeoutSentinel {
		return DefaultTimeout
	}
	return raw
}
