package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/metrics"
)

// MetricsMiddleware collects HTTP metrics for Prometheus.
// Requests are labelled by route template (/api/v1/messages/:userId), never by raw path.
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		m.HTTPActiveConnections.Inc()
		defer m.HTTPActiveConnections.Dec()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		// numeric status so Grafana can match status=~"5.."
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// RecordRateLimitExceeded counts a rejected request
func RecordRateLimitExceeded(path string) {
	metrics.Get().RateLimitExceededTotal.WithLabelValues(path).Inc()
}
