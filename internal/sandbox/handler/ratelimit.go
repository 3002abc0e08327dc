package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/auth"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per caller.
type limiterSet struct {
	rps, burst int
	now        func() time.Time

	mu       sync.Mutex
	limiters map[string]*callerLimiter
}

func newLimiterSet(rps, burst int) *limiterSet {
	return &limiterSet{rps: rps, burst: burst, now: time.Now, limiters: make(map[string]*callerLimiter)}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	l, ok := s.limiters[key]
	if !ok {
		l = &callerLimiter{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.limiters[key] = l
	}
	l.lastSeen = s.now()
	s.mu.Unlock()
	return l.limiter.Allow()
}

// sweep drops callers not seen for idle.
func (s *limiterSet) sweep(idle time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, l := range s.limiters {
		if now.Sub(l.lastSeen) > idle {
			delete(s.limiters, key)
		}
	}
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// run sweeps every interval until ctx is done.
func (s *limiterSet) run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(idle)
		}
	}
}

// RateLimiter returns a Gin middleware that enforces token-bucket rate
// limiting per caller. Callers are keyed by API key when one is sent and by
// client IP otherwise. Idle callers are swept every 5 minutes until ctx is
// done.
func RateLimiter(ctx context.Context, rps, burst int) gin.HandlerFunc {
	set := newLimiterSet(rps, burst)
	go set.run(ctx, limiterSweepInterval, limiterIdleTTL)

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if apiKey := c.GetHeader(auth.APIKeyHeader); apiKey != "" {
			key = "key:" + apiKey
		}

		if !set.allow(key) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
