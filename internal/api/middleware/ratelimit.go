package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"golang.org/x/time/rate"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/security"
)

type BlockObserver interface {
	ObserveLoginBlocked()
}

// LoginRateLimit refuses clients that failed to log in too often. A 401 from
// the wrapped handler counts as a failure, a 200 clears the history.
func LoginRateLimit(limiter *security.LoginRateLimiter, observer BlockObserver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.ClientIP()

		if blocked, retryAfter := limiter.Blocked(key); blocked {
			if observer != nil {
				observer.ObserveLoginBlocked()
			}
			response.RenderErr(ctx, response.ErrTooManyAttempts(retryAfter))
			return
		}

		ctx.Next()

		switch ctx.Writer.Status() {
		case http.StatusUnauthorized:
			limiter.RegisterFailure(key)
		case http.StatusOK:
			limiter.Reset(key)
		}
	}
}

// TokenLimiter keeps one token bucket per public share token. Buckets idle
// for longer than the idle period are dropped.
type TokenLimiter struct {
	clock clock.Clock

	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	limiters  map[string]*tokenBucket
	idle      time.Duration
	lastSweep time.Time
}

type tokenBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewTokenLimiter(clk clock.Clock, perSecond float64, burst int) *TokenLimiter {
	return &TokenLimiter{
		clock:     clk,
		limit:     rate.Limit(perSecond),
		burst:     burst,
		limiters:  make(map[string]*tokenBucket),
		idle:      10 * time.Minute,
		lastSweep: clk.Now(),
	}
}

func (l *TokenLimiter) SetLimits(perSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limit = rate.Limit(perSecond)
	l.burst = burst
	for _, b := range l.limiters {
		b.limiter.SetLimit(l.limit)
		b.limiter.SetBurst(burst)
	}
}

// Reserve reports whether a request for key may proceed now, and otherwise how
// long the caller should wait.
func (l *TokenLimiter) Reserve(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.Sub(l.lastSweep) > l.idle {
		l.sweep(now)
	}

	b, ok := l.limiters[key]
	if !ok {
		b = &tokenBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}

	return true, 0
}

// Len is the number of buckets currently kept.
func (l *TokenLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.limiters)
}

func (l *TokenLimiter) sweep(now time.Time) {
	for k, b := range l.limiters {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.limiters, k)
		}
	}
	l.lastSweep = now
}

// PublicWriteLimit throttles writes made through one share token. Malformed
// tokens get no bucket and are left to the handler to reject.
func PublicWriteLimit(limiter *TokenLimiter, param string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := ctx.Param(param)
		if _, err := uuid.Parse(token); err != nil {
			ctx.Next()
			return
		}

		if ok, retryAfter := limiter.Reserve(token); !ok {
			response.RenderErr(ctx, response.ErrTooManyAttempts(retryAfter))
			return
		}

		ctx.Next()
	}
}
