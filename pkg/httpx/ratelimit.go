package httpx

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Enabled reports whether the config describes a usable limit.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerWindow > 0 && c.Window > 0
}

// Client-side profiles. The server enforces its own limits; these keep a
// single client from tripping them.
var (
	// AuthLimit throttles login, registration and renewal calls.
	// Override with: MOONDANCE_RATELIMIT_AUTH_REQUESTS, MOONDANCE_RATELIMIT_AUTH_WINDOW_SEC, MOONDANCE_RATELIMIT_AUTH_BURST
	AuthLimit = RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		Burst:             5,
	}

	// APILimit throttles everything else.
	// Override with: MOONDANCE_RATELIMIT_API_REQUESTS, MOONDANCE_RATELIMIT_API_WINDOW_SEC, MOONDANCE_RATELIMIT_API_BURST
	APILimit = RateLimitConfig{
		RequestsPerWindow: 600,
		Window:            time.Minute,
		Burst:             50,
	}
)

func init() {
	AuthLimit = ParseRateLimitFromEnv("AUTH", AuthLimit)
	APILimit = ParseRateLimitFromEnv("API", APILimit)
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: MOONDANCE_RATELIMIT_{prefix}_{field}
// For example: MOONDANCE_RATELIMIT_API_REQUESTS, MOONDANCE_RATELIMIT_API_WINDOW_SEC, MOONDANCE_RATELIMIT_API_BURST
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("MOONDANCE_RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("MOONDANCE_RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("MOONDANCE_RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// KeyExtractor groups outbound requests into buckets that share a limiter.
type KeyExtractor func(*http.Request) string

// HostKeyExtractor buckets requests by target host.
func HostKeyExtractor(r *http.Request) string {
	return r.URL.Host
}

// rateLimiter manages rate limiters for different keys
type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newRateLimiter(config RateLimitConfig) *rateLimiter {
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		rate:  rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst: burst,
	}
}

// getLimiter retrieves or creates a rate limiter for the given key
func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return actual.(*rate.Limiter)
}

// RateLimit delays outbound requests so each key stays within config. A
// request whose context ends while waiting fails without being sent.
// A disabled config returns a pass-through middleware.
func RateLimit(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	if !config.Enabled() {
		return func(next http.RoundTripper) http.RoundTripper { return next }
	}
	if keyExtractor == nil {
		keyExtractor = HostKeyExtractor
	}

	rl := newRateLimiter(config)

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()
			limiter := rl.getLimiter(keyExtractor(r))

			if !limiter.Allow() {
				slogx.FromContext(ctx).Debug("rate limit: delaying request",
					"path", r.URL.Path,
				)
				if err := limiter.Wait(ctx); err != nil {
					return nil, fmt.Errorf("rate limit wait: %w", err)
				}
			}

			return next.RoundTrip(r)
		})
	}
}
