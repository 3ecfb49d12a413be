package ratelimit

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *fakeClock) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	l := New(ctx, limit, window)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l.now = clock.now
	return l, clock
}

func TestAllowExhaustsAndRefills(t *testing.T) {
	l, clock := newTestLimiter(t, 3, 3*time.Second)
	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d denied", i)
		}
	}
	if l.Allow("a") {
		t.Fatal("fourth request allowed")
	}
	if !l.Allow("b") {
		t.Error("other key should have its own bucket")
	}

	clock.advance(time.Second)
	if !l.Allow("a") {
		t.Error("one token should refill after a second")
	}
	if l.Allow("a") {
		t.Error("only one token should have refilled")
	}
}

func TestRefillCapsAtLimit(t *testing.T) {
	l, clock := newTestLimiter(t, 2, time.Second)
	l.Allow("a")
	clock.advance(time.Hour)
	allowed := 0
	for i := 0; i < 5; i++ {
		if l.Allow("a") {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed %d after long idle, want 2", allowed)
	}
}

func TestEvictIdleAndReset(t *testing.T) {
	l, clock := newTestLimiter(t, 1, time.Second)
	l.Allow("idle")
	clock.advance(time.Minute)
	l.Allow("busy")
	l.evictIdle()
	if _, ok := l.buckets["idle"]; ok {
		t.Error("idle bucket not evicted")
	}
	if _, ok := l.buckets["busy"]; !ok {
		t.Error("busy bucket evicted")
	}

	l.Reset("busy")
	if !l.Allow("busy") {
		t.Error("reset key should start full")
	}
}

func TestRetryAfter(t *testing.T) {
	l, _ := newTestLimiter(t, 60, time.Minute)
	if got := l.RetryAfter(); got != time.Second {
		t.Errorf("RetryAfter = %v, want 1s", got)
	}
}
