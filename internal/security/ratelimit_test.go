package security

import (
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
)

func newLimiter() (*LoginRateLimiter, *testclock.Clock) {
	clk := testclock.NewClock(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))
	return NewLoginRateLimiter(clk, 3, time.Minute, 5*time.Minute), clk
}

func TestLoginRateLimiter_BlocksAfterMaxAttempts(t *testing.T) {
	l, clk := newLimiter()

	assert.False(t, l.RegisterFailure("10.0.0.1"))
	assert.False(t, l.RegisterFailure("10.0.0.1"))
	assert.Equal(t, 1, l.Remaining("10.0.0.1"))
	assert.True(t, l.RegisterFailure("10.0.0.1"))

	blocked, retry := l.Blocked("10.0.0.1")
	assert.True(t, blocked)
	assert.Equal(t, 5*time.Minute, retry)

	blocked, _ = l.Blocked("10.0.0.2")
	assert.False(t, blocked)

	clk.Advance(5 * time.Minute)
	blocked, _ = l.Blocked("10.0.0.1")
	assert.False(t, blocked)
	assert.Equal(t, 3, l.Remaining("10.0.0.1"))
}

func TestLoginRateLimiter_WindowSlides(t *testing.T) {
	l, clk := newLimiter()

	l.RegisterFailure("a")
	clk.Advance(40 * time.Second)
	l.RegisterFailure("a")
	clk.Advance(30 * time.Second)

	// The first failure left the window.
	assert.Equal(t, 2, l.Remaining("a"))
	assert.False(t, l.RegisterFailure("a"))
	blocked, _ := l.Blocked("a")
	assert.False(t, blocked)
}

func TestLoginRateLimiter_ResetClearsState(t *testing.T) {
	l, _ := newLimiter()

	for i := 0; i < 3; i++ {
		l.RegisterFailure("a")
	}
	l.Reset("a")

	blocked, _ := l.Blocked("a")
	assert.False(t, blocked)
	assert.Equal(t, 3, l.Remaining("a"))
}

func TestLoginRateLimiter_SetLimits(t *testing.T) {
	l, _ := newLimiter()

	l.SetLimits(1, time.Minute, time.Minute)

	assert.True(t, l.RegisterFailure("a"))
}
