package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/cache"
	"github.com/hirewire/backend/internal/logger"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware is a fixed-window limiter keyed by client IP and shared by
// every API instance. Without Redis it lets requests through. When Redis errors the
// request is rejected with 503.
func RedisRateLimitMiddleware(redisClient *cache.RedisClient, maxRequests int, window time.Duration) gin.HandlerFunc {
	if redisClient == nil {
		logger.Log.Warn("Redis rate limiter unavailable, requests are not limited")
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		key := fmt.Sprintf("rate_limit:%s", clientIP)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, ttl, err := redisClient.IncrWindow(ctx, key, window)
		if err != nil {
			logger.Log.Error("Rate limit check failed",
				logger.WithIP(clientIP),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
			return
		}

		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(maxRequests) {
			retryAfter := int(ttl.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(clientIP),
				zap.Int("max_requests", maxRequests),
				zap.Int64("current_requests", count),
			)
			RecordRateLimitExceeded(c.FullPath())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
