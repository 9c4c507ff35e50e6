package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rmitchellscott/chartserver/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID reuses a client supplied X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog writes one access record per request once the handler is done.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		uri := c.Request.URL.RequestURI()
		if decoded, err := url.QueryUnescape(uri); err == nil {
			uri = decoded
		}

		c.Next()

		logging.InfoWithComponent(logging.ComponentAccess, "access",
			"ip", c.ClientIP(),
			"x_forwarded_for", c.GetHeader("X-Forwarded-For"),
			"referrer", c.GetHeader("Referer"),
			"method", c.Request.Method,
			"uri", uri,
			"status", c.Writer.Status(),
			"size", c.Writer.Size(),
			"cost", time.Since(start).Milliseconds(),
			"request_id", GetRequestID(c))
	}
}
