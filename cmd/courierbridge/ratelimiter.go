package main

import (
	"sync"
	"time"
)

// RateLimiter is a fixed-window per-IP request limiter for the webhook
// endpoint. Expired windows are cleaned up lazily on each check.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string]*windowCounter
}

type windowCounter struct {
	count   int
	started time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string]*windowCounter),
	}
}

// Allow reports whether another request from ip fits in the current
// window, counting it if so.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	for key, counter := range rl.hits {
		if now.Sub(counter.started) >= rl.window {
			delete(rl.hits, key)
		}
	}

	counter, ok := rl.hits[ip]
	if !ok {
		rl.hits[ip] = &windowCounter{count: 1, started: now}
		return true
	}

	if counter.count >= rl.limit {
		return false
	}
	counter.count++
	return true
}
