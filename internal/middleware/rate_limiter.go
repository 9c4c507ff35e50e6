package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/rmitchellscott/chartserver/internal/logging"
)

// IPRateLimiter implements token bucket rate limiting per client IP. By
// default the client is the TCP peer; forwarding headers are ignored.
type IPRateLimiter struct {
	limit     rate.Limit
	burst     int
	forwarded bool
	limiters  sync.Map // ip -> *ipLimiter
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

// NewIPRateLimiter allows perSecond requests per IP with the given burst.
func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{limit: rate.Limit(perSecond), burst: burst}
}

// TrustForwarded keys requests on gin's ClientIP. Forwarding headers then
// count only when the peer is one of the engine's trusted proxies, so the
// engine must be configured with SetTrustedProxies.
func (l *IPRateLimiter) TrustForwarded() *IPRateLimiter {
	l.forwarded = true
	return l
}

func (l *IPRateLimiter) clientIP(c *gin.Context) string {
	if l.forwarded {
		return c.ClientIP()
	}
	return c.RemoteIP()
}

func (l *IPRateLimiter) get(ip string) *ipLimiter {
	if val, ok := l.limiters.Load(ip); ok {
		return val.(*ipLimiter)
	}
	val, _ := l.limiters.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)})
	return val.(*ipLimiter)
}

// Allow reports whether ip may make a request now.
func (l *IPRateLimiter) Allow(ip string) bool {
	entry := l.get(ip)
	entry.mu.Lock()
	entry.lastSeen = time.Now()
	entry.mu.Unlock()
	return entry.limiter.Allow()
}

// RateLimit is a middleware that enforces the limit per client IP
func (l *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := l.clientIP(c)
		if !l.Allow(ip) {
			logging.WarnWithComponent(logging.ComponentHTTP, "Rate limit exceeded", "ip", ip)
			c.Header("Retry-After", "1")
			RespondError(c, NewHTTPError("Rate limit exceeded", "rate_limit", http.StatusTooManyRequests))
			return
		}
		c.Next()
	}
}

// Cleanup drops limiters idle for longer than maxIdle.
func (l *IPRateLimiter) Cleanup(maxIdle time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxIdle)
	l.limiters.Range(func(key, value any) bool {
		entry := value.(*ipLimiter)
		entry.mu.Lock()
		idle := entry.lastSeen.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			l.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// RunCleanup removes idle limiters every interval until ctx ends.
func (l *IPRateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Cleanup(interval); n > 0 {
				logging.DebugWithComponent(logging.ComponentHTTP, "Removed idle rate limiters", "count", n)
			}
		}
	}
}
