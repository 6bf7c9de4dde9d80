package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Result is the outcome of a single admission check.
type Result struct {
	Allowed    bool
	RetryAfter int // seconds, 0 when allowed
}

// Limiter is an in-memory fixed-window limiter keyed by an arbitrary identity
// string. Each key keeps the instants of its admitted events, oldest first.
// State is per process and lost on restart.
type Limiter struct {
	mu     sync.Mutex
	events map[string][]time.Time
	now    func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		events: make(map[string][]time.Time),
		now:    time.Now,
	}
}

// NewLimiterWithClock is used by tests to drive time manually.
func NewLimiterWithClock(clock func() time.Time) *Limiter {
	l := NewLimiter()
	l.now = clock
	return l
}

// Allow records an event for key if fewer than limit events happened within
// the last window. A non-positive limit or window disables limiting.
//
// time.Now carries a monotonic reading, so Sub between two of its values is
// immune to wall-clock adjustments.
func (l *Limiter) Allow(key string, limit int, window time.Duration) Result {
	if limit <= 0 || window <= 0 {
		return Result{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	queue := l.prune(l.events[key], now, window)

	if len(queue) >= limit {
		l.events[key] = queue
		elapsed := now.Sub(queue[0])
		retry := int(math.Ceil((window - elapsed).Seconds()))
		if retry < 1 {
			retry = 1
		}
		return Result{Allowed: false, RetryAfter: retry}
	}

	l.events[key] = append(queue, now)
	return Result{Allowed: true}
}

// Len reports how many events are currently retained for key.
func (l *Limiter) Len(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events[key])
}

// prune drops events older than now-window. The queue is sorted, so the
// first retained element bounds the rest.
func (l *Limiter) prune(queue []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(queue) && now.Sub(queue[i]) > window {
		i++
	}
	if i == 0 {
		return queue
	}
	// copy so the backing array does not grow without bound
	kept := make([]time.Time, len(queue)-i, cap(queue))
	copy(kept, queue[i:])
	return kept
}
