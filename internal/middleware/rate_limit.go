package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"hnlite/internal/utils"
)

const (
	limiterTTL    = 5 * time.Minute
	sweepInterval = time.Minute
)

type clientLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// RateLimiter hands out one token bucket per client key.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time

	lastSweep time.Time
}

// NewRateLimiter allows perMinute requests per client per minute with a burst of half that.
func NewRateLimiter(perMinute int) *RateLimiter {
	perMinute = max(perMinute, 1)
	return &RateLimiter{
		limiters: map[string]*clientLimiter{},
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
		now:      time.Now,
	}
}

// Middleware keys the bucket on the logged-in user, falling back to the client IP.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if u, ok := CurrentUser(c); ok {
			key = "user:" + u.Username
		}
		if !l.allow(key) {
			utils.Error(c, http.StatusTooManyRequests, "Too many requests, slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}

	cl, ok := l.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = cl
	}
	cl.expires = now.Add(limiterTTL)
	return cl.limiter.AllowN(now, 1)
}

// sweep 清理过期的限流器, 每个 sweepInterval 最多一次
func (l *RateLimiter) sweep(now time.Time) {
	for k, cl := range l.limiters {
		if now.After(cl.expires) {
			delete(l.limiters, k)
		}
	}
	l.lastSweep = now
}
