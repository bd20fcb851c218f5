package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(maxRequests int, window time.Duration) (*Limiter, *time.Time) {
	l := New(maxRequests, window)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllowsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if _, ok := l.Check("user:alice"); !ok {
			t.Fatalf("request %d blocked under the limit", i+1)
		}
	}
	retry, ok := l.Check("user:alice")
	if ok {
		t.Fatal("fourth request should be blocked")
	}
	if retry < 1 {
		t.Fatalf("retry-after = %d, want at least 1", retry)
	}
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	l.Check("k")
	l.Check("k")
	if _, ok := l.Check("k"); ok {
		t.Fatal("limit not enforced")
	}

	*clock = clock.Add(61 * time.Second)
	if _, ok := l.Check("k"); !ok {
		t.Fatal("expired entries must free the bucket")
	}
}

func TestRetryAfterCountsDown(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)

	l.Check("k")
	retry, ok := l.Check("k")
	if ok || retry != 61 {
		t.Fatalf("retry = %d allowed = %v, want 61 blocked", retry, ok)
	}

	*clock = clock.Add(45 * time.Second)
	retry, ok = l.Check("k")
	if ok || retry != 16 {
		t.Fatalf("retry = %d allowed = %v, want 16 blocked", retry, ok)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	l.Check("user:a")
	if _, ok := l.Check("ip:10.0.0.1"); !ok {
		t.Fatal("distinct keys must not share a bucket")
	}
}

func TestZeroLimitDisables(t *testing.T) {
	l := New(0, time.Minute)
	for i := 0; i < 100; i++ {
		if _, ok := l.Check("k"); !ok {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}

func TestNilLimiterAllows(t *testing.T) {
	var l *Limiter
	if _, ok := l.Check("k"); !ok {
		t.Fatal("nil limiter must allow")
	}
}
