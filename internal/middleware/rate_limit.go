package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	contextutils "github.com/rshatalov/rpy/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientIdleTTL is how long an idle client's bucket is kept
const clientIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP
type IPRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewIPRateLimiter creates a limiter allowing rps requests per second with the given burst
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		clients: map[string]*clientLimiter{},
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether the client may make a request now
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > clientIdleTTL {
		for key, client := range l.clients {
			if now.Sub(client.lastSeen) > clientIdleTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	client, ok := l.clients[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter.AllowN(now, 1)
}

// RateLimitMiddleware answers 429 RATE_LIMIT_EXCEEDED once a client exhausts its bucket.
// A non-positive rps disables limiting.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewIPRateLimiter(rps, burst)
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			abortWithAppError(c, http.StatusTooManyRequests,
				contextutils.ErrRateLimit.With(fmt.Sprintf("at most %g requests per second from one client", rps), nil))
			return
		}
		c.Next()
	}
}
