package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/rmitchellscott/chartserver/internal/logging"
)

// RequestSizeLimit rejects bodies larger than maxBytes. Declared lengths are
// checked up front; chunked bodies are cut off by http.MaxBytesReader.
func RequestSizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			logging.WarnWithComponent(logging.ComponentHTTP, "Request too large",
				"size", c.Request.ContentLength,
				"limit", maxBytes,
				"ip", c.ClientIP())
			e := NewHTTPError("Request payload too large", "body_too_large", http.StatusRequestEntityTooLarge)
			e.Extra = []string{fmt.Sprintf("max_size=%dB", maxBytes)}
			RespondError(c, e)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// ConcurrencyLimit lets at most limit requests through at once. Requests
// wait up to wait for a slot before failing with 429.
func ConcurrencyLimit(limit int64, wait time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(limit)
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		if !sem.TryAcquire(1) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
			err := sem.Acquire(ctx, 1)
			cancel()
			if err != nil {
				logging.WarnWithComponent(logging.ComponentHTTP, "Too many concurrent requests",
					"limit", limit,
					"ip", c.ClientIP())
				RespondError(c, NewHTTPError("Too many requests", "too_many_requests", http.StatusTooManyRequests))
				return
			}
		}
		defer sem.Release(1)
		c.Next()
	}
}

// Timeout bounds the request context. Handlers that wait on the context
// answer 408 once it expires.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
