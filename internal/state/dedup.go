package state

import (
	"sync"
	"time"
)

// DedupWindow is a time-bounded set membership test over webhook event
// ids. Concurrent webhook calls share it, so every check is serialized
// behind a single mutex. Entries older than the window are purged on
// every insertion check, which keeps the map bounded without a
// background sweeper.
type DedupWindow struct {
	mu     sync.Mutex
	window time.Duration
	now    Clock
	seen   map[string]time.Time
}

// NewDedupWindow creates a window with the given trailing duration.
// A nil clock uses the system clock.
func NewDedupWindow(window time.Duration, now Clock) *DedupWindow {
	if now == nil {
		now = systemClock
	}
	return &DedupWindow{
		window: window,
		now:    now,
		seen:   make(map[string]time.Time),
	}
}

// SeenRecently reports whether id was handled within the trailing
// window. Any id it reports false for is recorded as seen now. The
// empty id is never seen and never recorded.
func (d *DedupWindow) SeenRecently(id string) bool {
	if id == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	ts, ok := d.seen[id]
	if ok && now.Sub(ts) < d.window {
		return true
	}
	d.seen[id] = now

	for k, v := range d.seen {
		if now.Sub(v) > d.window {
			delete(d.seen, k)
		}
	}
	return false
}

// Len reports the number of retained entries.
func (d *DedupWindow) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
