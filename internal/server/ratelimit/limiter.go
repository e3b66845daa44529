// Package ratelimit admits command requests with a fixed-window counter per
// (user, device). State is in memory and lost on restart.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Key identifies one counter.
type Key struct {
	Email    string
	DeviceID string
}

// Result is the outcome of one admission check. RetryAfterSeconds is set
// only when the request was rejected.
type Result struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is safe for concurrent use.
type Limiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	windows map[Key]*window
}

func New(maxRequests int, d time.Duration) *Limiter {
	return &Limiter{
		max:     maxRequests,
		window:  d,
		windows: make(map[Key]*window),
	}
}

// Admit counts one request for key at now. A window that has passed its
// reset time is replaced by a fresh one.
func (l *Limiter) Admit(key Key, now time.Time) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.window)}
		return Result{Allowed: true, Remaining: l.max - 1}
	}

	if w.count < l.max {
		w.count++
		return Result{Allowed: true, Remaining: l.max - w.count}
	}

	wait := w.resetAt.Sub(now)
	retry := int(math.Ceil(float64(wait.Milliseconds()) / 1000))
	if retry < 1 {
		retry = 1
	}
	return Result{Allowed: false, RetryAfterSeconds: retry}
}

// Cleanup drops windows that expired before now and returns how many were
// removed.
func (l *Limiter) Cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
