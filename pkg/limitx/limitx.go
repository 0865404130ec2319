// Package limitx provides a per-key token-bucket rate limiter. Keys are
// caller-defined (subject id, session id, client address) so the limiter
// works the same in front of any entry point.
package limitx

import (
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting parameters for one limiter.
type Config struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Common profiles. Each can be overridden via environment variables,
// e.g. RATELIMIT_STRICT_REQUESTS, RATELIMIT_STRICT_WINDOW_SEC,
// RATELIMIT_STRICT_BURST.
var (
	// StrictLimit for credential and token validation paths (brute force
	// prevention). Allows 5 requests per minute, all available as a burst.
	StrictLimit = Config{
		RequestsPerWindow: 5,
		Window:            time.Minute,
		Burst:             5,
	}

	// ModerateLimit for authenticated operations.
	ModerateLimit = Config{
		RequestsPerWindow: 20,
		Window:            time.Minute,
		Burst:             20,
	}

	// LenientLimit for high-volume trusted callers.
	LenientLimit = Config{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		Burst:             100,
	}
)

func init() {
	StrictLimit = ParseConfigFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseConfigFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseConfigFromEnv("LENIENT", LenientLimit)
}

// ParseConfigFromEnv reads limiter configuration from environment variables
// following the pattern RATELIMIT_{prefix}_{field}. Invalid or non-positive
// values fall back to the provided defaults.
func ParseConfigFromEnv(prefix string, defaultConfig Config) Config {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// Limiter manages independent token buckets per key.
type Limiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

// New builds a Limiter from a Config.
func New(config Config) *Limiter {
	ratePerSecond := float64(config.RequestsPerWindow) / config.Window.Seconds()

	return &Limiter{
		rate:        rate.Limit(ratePerSecond),
		burst:       config.Burst,
		lastCleanup: time.Now(),
	}
}

// Allow reports whether the caller identified by key may proceed now.
// An empty key is always allowed; callers that cannot derive a key should
// not be silently throttled as one shared bucket.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	return l.getLimiter(key).Allow()
}

// RetryAfter estimates how long the caller identified by key must wait for
// the next token. Returns at least one second when the bucket is empty.
func (l *Limiter) RetryAfter(key string) time.Duration {
	reservation := l.getLimiter(key).Reserve()
	delay := reservation.Delay()
	reservation.Cancel() // Don't actually consume the reservation

	return max(delay, time.Second)
}

// getLimiter retrieves or creates a rate limiter for the given key
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	// Fast path: limiter already exists
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	// Slow path: create new limiter
	limiter := rate.NewLimiter(l.rate, l.burst)
	actual, _ := l.limiters.LoadOrStore(key, limiter)

	// Periodic cleanup to prevent memory leak
	l.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup removes old limiters that haven't been used recently
// This prevents memory leaks from accumulating limiters for ephemeral keys
func (l *Limiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Only cleanup once every 5 minutes
	if time.Since(l.lastCleanup) < 5*time.Minute {
		return
	}

	l.lastCleanup = time.Now()

	// Remove limiters that have full token buckets (haven't been used
	// recently). If a limiter would allow burst requests, it's been idle.
	l.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}
