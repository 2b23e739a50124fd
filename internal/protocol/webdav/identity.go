package webdav

import "context"

// Identity describes the caller of one request.
type Identity struct {
	// User is the authenticated user name, empty for anonymous requests
	User string

	// ClientAddr is the remote address ("IP:port")
	ClientAddr string

	// RequestID correlates log lines of one request
	RequestID string
}

type identityKey struct{}

type timeoutKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the Identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// withTimeout stores the normalized Timeout header value in ctx.
func withTimeout(ctx context.Context, timeout string) context.Context {
	return context.WithValue(ctx, timeoutKey{}, timeout)
}

// TimeoutFromContext returns the normalized Timeout header of the request.
// It is set for every request processed by Engine.
func TimeoutFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(timeoutKey{}).(string)
	return t, ok
}
