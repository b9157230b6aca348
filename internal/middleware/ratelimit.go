package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig holds configuration for the in-process limiter
type RateLimitConfig struct {
	// Requests per window
	Limit  int
	Window time.Duration
	// KeyFunc picks the bucket; defaults to client IP
	KeyFunc func(c *gin.Context) string
}

// AuthRateLimitConfig guards credential endpoints (login, register, password reset)
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   10,
		Window:  time.Minute,
		KeyFunc: func(c *gin.Context) string { return c.ClientIP() },
	}
}

// UploadRateLimitConfig returns limits for upload endpoints
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   20,
		Window:  time.Minute,
		KeyFunc: func(c *gin.Context) string { return c.ClientIP() },
	}
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimiter keeps one token bucket per key in memory. Buckets refill continuously at
// Limit tokens per Window and are swept once they are full again.
type RateLimiter struct {
	config    RateLimitConfig
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
	}
}

func (rl *RateLimiter) refillRate() float64 {
	return float64(rl.config.Limit) / rl.config.Window.Seconds()
}

// Allow takes a token for key. When none is left it returns the seconds until one is.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	capacity := float64(rl.config.Limit)
	b, ok := rl.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: capacity, lastRefill: now}
		rl.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * rl.refillRate()
	if b.tokens > capacity {
		b.tokens = capacity
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	return false, int((1-b.tokens)/rl.refillRate()) + 1
}

// sweep drops buckets that have refilled completely; caller holds mu
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.config.Window {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.buckets {
		if now.Sub(b.lastRefill) >= rl.config.Window {
			delete(rl.buckets, key)
		}
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After header
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.Allow(rl.config.KeyFunc(c))
		if !allowed {
			RecordRateLimitExceeded(c.FullPath())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}
