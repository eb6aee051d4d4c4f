package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/platinummonkey/labstock/pkg/httputil"
	"github.com/platinummonkey/labstock/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the sustained number of requests per window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns the default sign-in limit
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
		BurstSize:         5,
	}
}

func (c *RateLimitConfig) capacity() int {
	return c.RequestsPerWindow + c.BurstSize
}

// Limiter decides whether one more attempt under key is allowed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter is an in-memory token bucket limiter
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow takes one token from key's bucket. It never returns an error.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.refill(key, now)
	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// refill must be called with mu held
func (rl *RateLimiter) refill(key string, now time.Time) *bucket {
	capacity := float64(rl.config.capacity())
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, lastUpdate: now}
		rl.buckets[key] = b
		return b
	}

	elapsed := now.Sub(b.lastUpdate)
	if elapsed > 0 && rl.config.WindowDuration > 0 {
		rate := float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds()
		b.tokens = math.Min(capacity, b.tokens+elapsed.Seconds()*rate)
		b.lastUpdate = now
	}
	return b
}

// Remaining returns the number of whole tokens left for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if _, ok := rl.buckets[key]; !ok {
		return rl.config.capacity()
	}
	return int(rl.refill(key, rl.now()).tokens)
}

// Cleanup drops buckets idle for more than two windows
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastUpdate) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanup runs Cleanup every window until ctx is done
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// KeyFunc derives the limiter key from a request
type KeyFunc func(r *http.Request) string

// ClientKey keys on the client address alone
func ClientKey(r *http.Request) string {
	return "ip:" + httputil.ClientIP(r)
}

// RateLimitMiddleware rejects requests over the limit with a
// too_many_requests envelope. A limiter error fails open and is logged.
func RateLimitMiddleware(limiter Limiter, window time.Duration, key KeyFunc, message string) httputil.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), key(r))
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Warn("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(window.Seconds()))))
				_ = httputil.WriteError(w, httputil.TagTooManyRequests, message, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LimiterFor builds the limiter for backend, "memory" or "redis"
func LimiterFor(backend string, config *RateLimitConfig, redisLimiter func(*RateLimitConfig) Limiter) (Limiter, error) {
	switch backend {
	case "", "memory":
		return NewRateLimiter(config), nil
	case "redis":
		if redisLimiter == nil {
			return nil, fmt.Errorf("redis rate limiting requires a redis client")
		}
		return redisLimiter(config), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", backend)
	}
}
