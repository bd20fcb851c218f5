// Package ratelimit provides an in-memory sliding-window request
// limiter for lightweight abuse protection. Counts are per process;
// horizontal deployments need a shared limiter in front.
package ratelimit

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// Limiter tracks request timestamps per key and rejects a request when
// the key already saw maxRequests requests inside the window.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.Mutex
	buckets map[string][]time.Time
	now     func() time.Time
}

// New builds a limiter. A non-positive maxRequests disables limiting;
// the window floor is one second.
func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests < 0 {
		maxRequests = 0
	}
	if window < time.Second {
		window = time.Second
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		buckets:     make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Check records a request for key and reports whether it is allowed.
// When blocked, retryAfter is the whole number of seconds the caller
// should wait, never less than one.
func (l *Limiter) Check(key string) (retryAfter int, allowed bool) {
	if l == nil || l.maxRequests <= 0 {
		return 0, true
	}

	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.buckets[key]
	keep := 0
	for _, ts := range bucket {
		if ts.After(cutoff) {
			bucket[keep] = ts
			keep++
		}
	}
	bucket = bucket[:keep]

	if len(bucket) >= l.maxRequests {
		l.buckets[key] = bucket
		wait := bucket[0].Add(l.window).Sub(now)
		retry := int(wait.Seconds()) + 1
		if retry < 1 {
			retry = 1
		}
		return retry, false
	}

	l.buckets[key] = append(bucket, now)
	return 0, true
}

// FromEnv builds the limiter from CLOUDTUTOR_RATE_LIMIT_RPM (default 60,
// zero disables) and CLOUDTUTOR_RATE_LIMIT_WINDOW_SECONDS (default 60).
// Returns nil when limiting is disabled.
func FromEnv() *Limiter {
	maxRequests := envInt("CLOUDTUTOR_RATE_LIMIT_RPM", 60, 0)
	if maxRequests <= 0 {
		return nil
	}
	windowSeconds := envInt("CLOUDTUTOR_RATE_LIMIT_WINDOW_SECONDS", 60, 1)
	return New(maxRequests, time.Duration(windowSeconds)*time.Second)
}

func envInt(name string, def, minimum int) int {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < minimum {
		return minimum
	}
	return v
}
