package app

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyellow/ntpu-section-swap/internal/ctxutil"
	"github.com/garyellow/ntpu-section-swap/internal/logger"
	"github.com/garyellow/ntpu-section-swap/internal/metrics"
)

const requestIDHeader = "X-Request-Id"

// securityHeadersMiddleware adds security headers to all responses.
// Reference: https://gin-gonic.com/en/docs/examples/security-headers
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Next()
	}
}

// requestMiddleware tags each request with an id, logs it once it completes
// and counts it by route.
func requestMiddleware(log *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(route, strconv.Itoa(status))

		entry := log.WithRequestID(requestID).WithFields(map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		})

		switch {
		case len(c.Errors) > 0 && status >= 500:
			entry.WithField("errors", c.Errors.String()).Error("Request completed with errors")
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Debug("Request completed")
		}
	}
}
