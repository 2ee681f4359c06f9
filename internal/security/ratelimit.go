package security

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

// LoginRateLimiter blocks a client for a while once it has failed to log in
// too many times within a sliding window.
type LoginRateLimiter struct {
	mu    sync.Mutex
	clock clock.Clock

	maxAttempts int
	window      time.Duration
	block       time.Duration

	failures map[string][]time.Time
	blocked  map[string]time.Time
}

func NewLoginRateLimiter(clk clock.Clock, maxAttempts int, window, block time.Duration) *LoginRateLimiter {
	return &LoginRateLimiter{
		clock:       clk,
		maxAttempts: maxAttempts,
		window:      window,
		block:       block,
		failures:    make(map[string][]time.Time),
		blocked:     make(map[string]time.Time),
	}
}

// SetLimits swaps the limits in place. Existing blocks keep their deadline.
func (l *LoginRateLimiter) SetLimits(maxAttempts int, window, block time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maxAttempts = maxAttempts
	l.window = window
	l.block = block
}

// Blocked reports whether key is currently refused and for how long.
func (l *LoginRateLimiter) Blocked(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.blocked[key]
	if !ok {
		return false, 0
	}

	now := l.clock.Now()
	if !now.Before(until) {
		delete(l.blocked, key)
		return false, 0
	}

	return true, until.Sub(now)
}

// RegisterFailure records a failed attempt and reports whether key is now blocked.
func (l *LoginRateLimiter) RegisterFailure(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	attempts := l.recent(key, now)
	attempts = append(attempts, now)

	if len(attempts) >= l.maxAttempts {
		l.blocked[key] = now.Add(l.block)
		delete(l.failures, key)
		return true
	}

	l.failures[key] = attempts
	return false
}

func (l *LoginRateLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.failures, key)
	delete(l.blocked, key)
}

// Remaining returns how many failures key may still make before being blocked.
func (l *LoginRateLimiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.maxAttempts - len(l.recent(key, l.clock.Now()))
	if remaining < 0 {
		return 0
	}

	return remaining
}

// recent drops the failures of key that fell out of the window. Callers hold mu.
func (l *LoginRateLimiter) recent(key string, now time.Time) []time.Time {
	attempts := l.failures[key]
	cutoff := now.Add(-l.window)

	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, key)
		return nil
	}

	l.failures[key] = kept
	return kept
}
