// Package middleware provides sign-in rate limiting.
//
// Two Limiter implementations exist: RateLimiter, an in-memory token bucket
// for single instances, and DistributedRateLimiter, a Redis fixed window
// shared across instances. RateLimitMiddleware turns either into a route
// middleware that answers 429 with a too_many_requests envelope:
//
//	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
//		RequestsPerWindow: 10,
//		WindowDuration:    time.Minute,
//		BurstSize:         5,
//	})
//	route.Use(middleware.RateLimitMiddleware(limiter, time.Minute, middleware.ClientKey, msg))
//
// # Related Packages
//
//   - pkg/api: Wires the limiter onto PUT /users/{name}/token
//   - pkg/httputil: Envelope and ClientIP
package middleware
