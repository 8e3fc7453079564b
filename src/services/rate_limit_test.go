package services

import (
	"testing"
	"time"
)

func TestRateLimiterBurstAndRefill(t *testing.T) {
	limiter := NewRateLimiter(2, 60)
	now := time.Unix(1_700_000_000, 0)

	if !limiter.Allow("u1", now) || !limiter.Allow("u1", now) {
		t.Fatalf("burst of 2 should be allowed")
	}
	if limiter.Allow("u1", now) {
		t.Fatalf("third call in the same instant should be limited")
	}
	if !limiter.Allow("u2", now) {
		t.Fatalf("buckets are per user")
	}
	if !limiter.Allow("u1", now.Add(time.Second)) {
		t.Fatalf("one token should refill after a second at 60/min")
	}
	if limiter.Allow("u1", now.Add(time.Second)) {
		t.Fatalf("only one token should have refilled")
	}
}

func TestRateLimiterRefillIsCappedAtBurst(t *testing.T) {
	limiter := NewRateLimiter(1, 60)
	now := time.Unix(1_700_000_000, 0)

	limiter.Allow("u1", now)
	later := now.Add(time.Hour)
	if !limiter.Allow("u1", later) {
		t.Fatalf("expected refill after an hour")
	}
	if limiter.Allow("u1", later) {
		t.Fatalf("refill should not exceed burst")
	}
}

func TestNilRateLimiterAllows(t *testing.T) {
	var limiter *RateLimiter
	if NewRateLimiter(0, 10) != nil {
		t.Fatalf("zero burst should disable limiting")
	}
	if !limiter.Allow("u1", time.Now()) {
		t.Fatalf("nil limiter must allow")
	}
}

func TestRateLimiterDropsRecoveredUsers(t *testing.T) {
	limiter := NewRateLimiter(2, 60)
	now := time.Unix(1_700_000_000, 0)

	for _, id := range []string{"u1", "u2", "u3"} {
		limiter.Allow(id, now)
	}
	limiter.Allow("u3", now)
	if got := limiter.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}

	// u1 and u2 recovered after one second, u3 after two.
	later := now.Add(sweepInterval)
	limiter.Allow("u4", later)
	if got := limiter.Len(); got != 1 {
		t.Fatalf("Len after sweep = %d, want 1", got)
	}

	if !limiter.Allow("u1", later) || !limiter.Allow("u1", later) {
		t.Fatalf("swept user should start with a full burst")
	}
	if limiter.Allow("u1", later) {
		t.Fatalf("swept user should still be limited after the burst")
	}
}

func TestRateLimiterKeepsThrottledUsers(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)

	limiter.Allow("u1", now)
	limiter.Allow("u2", now.Add(sweepInterval-time.Second))
	limiter.Allow("u3", now.Add(sweepInterval))
	if got := limiter.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	if limiter.Allow("u2", now.Add(sweepInterval)) {
		t.Fatalf("throttled user lost its state in the sweep")
	}
}
