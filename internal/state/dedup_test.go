package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestDedupWindowSeenRecently(t *testing.T) {
	clk := newFakeClock()
	d := NewDedupWindow(5*time.Minute, clk.Now)

	assert.False(t, d.SeenRecently("evt-1"), "first sighting is not seen")
	assert.True(t, d.SeenRecently("evt-1"), "immediate repeat is seen")

	clk.Advance(4 * time.Minute)
	assert.True(t, d.SeenRecently("evt-1"), "still inside window")

	clk.Advance(2 * time.Minute)
	assert.False(t, d.SeenRecently("evt-1"), "window elapsed, treated as new")
}

func TestDedupWindowEmptyID(t *testing.T) {
	d := NewDedupWindow(5*time.Minute, nil)
	assert.False(t, d.SeenRecently(""))
	assert.False(t, d.SeenRecently(""))
	assert.Equal(t, 0, d.Len())
}

func TestDedupWindowEviction(t *testing.T) {
	clk := newFakeClock()
	d := NewDedupWindow(5*time.Minute, clk.Now)

	d.SeenRecently("evt-1")
	d.SeenRecently("evt-2")
	assert.Equal(t, 2, d.Len())

	clk.Advance(6 * time.Minute)
	d.SeenRecently("evt-3")
	assert.Equal(t, 1, d.Len(), "stale entries purged on insertion check")
}

func TestDedupWindowConcurrentChecks(t *testing.T) {
	d := NewDedupWindow(5*time.Minute, nil)

	var wg sync.WaitGroup
	var seenCount int32
	var mu sync.Mutex
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.SeenRecently("evt-shared") {
				mu.Lock()
				seenCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Exactly one goroutine observed the id as fresh.
	assert.Equal(t, int32(31), seenCount)
}
