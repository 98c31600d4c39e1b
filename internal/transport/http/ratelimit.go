package http

import (
	"sync"
	"time"
)

// rateLimiter allows each user limit sends per fixed window.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[int64]*rateWindow
}

type rateWindow struct {
	start   time.Time
	counter int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[int64]*rateWindow),
	}
}

func (r *rateLimiter) allow(userID int64) bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.windows[userID]
	if !ok || now.Sub(w.start) >= r.window {
		w = &rateWindow{start: now}
		r.windows[userID] = w
		r.prune(now)
	}
	w.counter++
	return w.counter <= r.limit
}

// prune drops expired windows of other users.
func (r *rateLimiter) prune(now time.Time) {
	for id, w := range r.windows {
		if now.Sub(w.start) >= r.window {
			delete(r.windows, id)
		}
	}
}
