package ratelimit

import (
	"context"
	"sync"
	"time"
)

// window counts hits for one key inside one fixed interval.
type window struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window counter keyed by caller (user ID or IP).
type RateLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mutex   sync.Mutex
	windows map[string]*window
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow records one hit for key. When the window is exhausted it returns
// false and the time left until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.period {
		rl.windows[key] = &window{start: now, count: 1}
		return true, 0
	}

	if w.count >= rl.limit {
		return false, w.start.Add(rl.period).Sub(now)
	}
	w.count++
	return true, 0
}

// Remaining reports how many hits key has left in its current window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	w, ok := rl.windows[key]
	if !ok || rl.now().Sub(w.start) >= rl.period {
		return rl.limit
	}
	return rl.limit - w.count
}

func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Cleanup drops windows that have already expired.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.period {
			delete(rl.windows, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

func (rl *RateLimiter) size() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.windows)
}
