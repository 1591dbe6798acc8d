package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window counter keyed by client, used to throttle
// login attempts. Old entries are swept by a background loop.
type Limiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
}

func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
	go l.sweepLoop()
	return l
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-l.window)
		for key, times := range l.attempts {
			kept := keepAfter(times, cutoff)
			if len(kept) == 0 {
				delete(l.attempts, key)
			} else {
				l.attempts[key] = kept
			}
		}
		l.mu.Unlock()
	}
}

// Allow records an attempt for key and reports whether it stays within the
// window limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	l.attempts[key] = keepAfter(l.attempts[key], cutoff)

	if len(l.attempts[key]) >= l.limit {
		return false
	}

	l.attempts[key] = append(l.attempts[key], time.Now())
	return true
}

// Remaining reports how many attempts the key has left in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	used := len(keepAfter(l.attempts[key], cutoff))
	if used >= l.limit {
		return 0
	}
	return l.limit - used
}

func keepAfter(times []time.Time, cutoff time.Time) []time.Time {
	var kept []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
