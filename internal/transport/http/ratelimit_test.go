package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := newRateLimiter(2)
	r.now = func() time.Time { return now }

	if !r.allow() || !r.allow() {
		t.Fatalf("first two events must pass")
	}
	if r.allow() {
		t.Fatalf("third event in window must be rejected")
	}

	now = now.Add(30 * time.Second)
	if r.allow() {
		t.Fatalf("window has not elapsed yet")
	}

	now = now.Add(31 * time.Second)
	if !r.allow() {
		t.Fatalf("new window must admit events")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(0)
	for i := 0; i < 1000; i++ {
		if !r.allow() {
			t.Fatalf("disabled limiter rejected event %d", i)
		}
	}
	var nilLimiter *rateLimiter
	if !nilLimiter.allow() {
		t.Fatalf("nil limiter must allow")
	}
}
