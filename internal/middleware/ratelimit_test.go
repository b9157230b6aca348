package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func okRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(handlers...)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func get(router http.Handler, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(RateLimitConfig{Limit: 3, Window: time.Second})
	limiter.now = func() time.Time { return clock }
	router := okRouter(limiter.Middleware())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(router).Code, "request %d should succeed", i+1)
	}

	w := get(router)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	clock = clock.Add(time.Second + 100*time.Millisecond)
	assert.Equal(t, http.StatusOK, get(router).Code, "request after window should succeed")
}

func TestRateLimiterDifferentClients(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		Limit:   2,
		Window:  time.Minute,
		KeyFunc: func(c *gin.Context) string { return c.GetHeader("X-Client-ID") },
	})
	router := okRouter(limiter.Middleware())

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(router, "X-Client-ID", "client-a").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(router, "X-Client-ID", "client-a").Code, "client A should be limited")
	assert.Equal(t, http.StatusOK, get(router, "X-Client-ID", "client-b").Code, "client B should not be limited")
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(RateLimitConfig{Limit: 1, Window: time.Second})
	limiter.now = func() time.Time { return clock }

	limiter.Allow("a")
	limiter.Allow("b")
	assert.Len(t, limiter.buckets, 2)

	clock = clock.Add(2 * time.Second)
	limiter.Allow("c")
	assert.Len(t, limiter.buckets, 1)
}

func TestDefaultConfigs(t *testing.T) {
	authConfig := AuthRateLimitConfig()
	assert.Equal(t, 10, authConfig.Limit)
	assert.Equal(t, time.Minute, authConfig.Window)
	assert.NotNil(t, authConfig.KeyFunc)

	uploadConfig := UploadRateLimitConfig()
	assert.Equal(t, 20, uploadConfig.Limit)
	assert.Equal(t, time.Minute, uploadConfig.Window)
}

func TestRedisRateLimitPassesThroughWithoutRedis(t *testing.T) {
	router := okRouter(RedisRateLimitMiddleware(nil, 1, time.Minute))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(router).Code)
	}
}

func TestRedisRateLimitRejectsWhenRedisErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer client.Close()

	router := okRouter(RedisRateLimitMiddleware(cache.Wrap(client), 10, time.Minute))
	assert.Equal(t, http.StatusServiceUnavailable, get(router).Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	router := gin.New()
	router.Use(RequestIDMiddleware(), GinLoggerMiddleware())
	router.GET("/test", func(c *gin.Context) {
		seen = c.GetString(ContextRequestID)
		c.Status(http.StatusNoContent)
	})

	w := get(router, RequestIDHeader, "req-123")
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-123", seen)

	w = get(router)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), seen)
}
