// Package ratelimiter provides the token bucket used to throttle incoming
// WebDAV requests.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// unlimited is the sustained rate used when no limit is configured.
const unlimited = 1_000_000_000

// RateLimiter is a token bucket: tokens refill at a sustained rate and each
// request consumes one. Burst is the bucket capacity, i.e. how many requests
// may pass back to back after an idle period.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter.
//
// Parameters:
//   - requestsPerSecond: sustained rate; 0 disables limiting
//   - burst: bucket capacity; 0 defaults to requestsPerSecond
//
// Example:
//
//	// 500 req/s sustained, spikes of up to 1000
//	limiter := ratelimiter.New(500, 1000)
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
		burst = unlimited
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow consumes a token if one is available and reports whether it did.
// It never blocks; the HTTP middleware rejects the request when it returns false.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// SetLimit changes the sustained rate; 0 disables limiting.
// Burst is left as configured.
func (r *RateLimiter) SetLimit(requestsPerSecond uint) {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
	}
	r.limiter.SetLimit(rate.Limit(requestsPerSecond))
}

// Limit returns the sustained rate in requests per second.
func (r *RateLimiter) Limit() float64 {
	return float64(r.limiter.Limit())
}

// Burst returns the bucket capacity.
func (r *RateLimiter) Burst() int {
	return r.limiter.Burst()
}

// Tokens returns the tokens currently in the bucket. Monitoring only: the
// value is stale as soon as it is returned.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
