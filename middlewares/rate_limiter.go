package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeremiapane/food-delivery-app/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const defaultSweepEvery = 1024

// RateLimiter keeps one token bucket per client IP. Idle visitors are swept
// once every sweepEvery lookups.
type RateLimiter struct {
	rate       rate.Limit
	burst      int
	idleTTL    time.Duration
	sweepEvery int
	calls      int
	visitors   map[string]*visitor
	mu         sync.Mutex
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:       rate.Limit(rps),
		burst:      burst,
		idleTTL:    3 * time.Minute,
		sweepEvery: defaultSweepEvery,
		visitors:   make(map[string]*visitor),
	}
}

func (rl *RateLimiter) limiter(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.calls++
	if rl.calls >= rl.sweepEvery {
		rl.calls = 0
		rl.sweep(now)
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep drops visitors idle longer than idleTTL. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, key)
		}
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP(), time.Now()).Allow() {
			c.Header("Retry-After", "1")
			utils.RespondJSON(c, http.StatusTooManyRequests, "too many requests, slow down", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// NewStrictRateLimiter is the tighter per-IP budget for login and register.
func NewStrictRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(float64(rate.Every(12*time.Second)), 5).RateLimit()
}
