package app

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// attemptLimiter is a sliding-window limiter over auth attempts made through
// the control API. The control API is loopback-only, so one window is shared
// by all callers.
type attemptLimiter struct {
	mu     sync.Mutex
	events []time.Time
	max    int
	window time.Duration
	now    func() time.Time
}

func newAttemptLimiter(limit int, window time.Duration) *attemptLimiter {
	if limit <= 0 {
		return nil
	}
	return &attemptLimiter{
		events: make([]time.Time, 0, limit),
		max:    limit,
		window: window,
		now:    time.Now,
	}
}

// allow records an attempt and reports whether it may proceed. When it may
// not, retryAfter is the time until the oldest attempt leaves the window.
// A nil limiter allows everything.
func (l *attemptLimiter) allow() (ok bool, retryAfter time.Duration) {
	if l == nil {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	cut := now.Add(-l.window)
	dst := l.events[:0]
	for _, t := range l.events {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	l.events = dst

	if len(l.events) >= l.max {
		return false, l.events[0].Add(l.window).Sub(now)
	}
	l.events = append(l.events, now)
	return true, 0
}

// limit wraps next with the limiter.
func (l *attemptLimiter) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ok, retryAfter := l.allow(); !ok {
			secs := int64(retryAfter / time.Second)
			if retryAfter%time.Second != 0 {
				secs++
			}
			w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
			return
		}
		next(w, r)
	}
}
