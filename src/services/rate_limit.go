package services

import (
	"sync"
	"time"
)

// sweepInterval is how often Allow drops users whose allowance has fully
// recovered.
const sweepInterval = time.Minute

// RateLimiter enforces per-user limits on directory mutations. Each user is
// tracked by the time at which their allowance would be back to a full burst;
// a user past that time has no state worth keeping.
type RateLimiter struct {
	interval  time.Duration // one request's worth of recovery
	tolerance time.Duration // how far ahead of now a user may run

	mu        sync.Mutex
	readyAt   map[string]time.Time
	lastSweep time.Time
}

// NewRateLimiter returns nil when burst is not positive, which disables
// limiting. A sustained rate below one per minute is treated as one.
func NewRateLimiter(burst, sustainedPerMinute int) *RateLimiter {
	if burst <= 0 {
		return nil
	}
	interval := time.Minute / time.Duration(max(sustainedPerMinute, 1))
	return &RateLimiter{
		interval:  interval,
		tolerance: time.Duration(burst-1) * interval,
		readyAt:   make(map[string]time.Time),
	}
}

func (l *RateLimiter) Allow(userID string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweepLocked(now)
	}

	next := now
	if at, ok := l.readyAt[userID]; ok && at.After(now) {
		next = at
	}
	if next.Sub(now) > l.tolerance {
		return false
	}
	l.readyAt[userID] = next.Add(l.interval)
	return true
}

// Len reports how many users currently hold limiter state.
func (l *RateLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.readyAt)
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	for userID, at := range l.readyAt {
		if !at.After(now) {
			delete(l.readyAt, userID)
		}
	}
	l.lastSweep = now
}
