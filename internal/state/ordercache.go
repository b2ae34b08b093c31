package state

import (
	"sync"
	"time"

	"courierbridge/internal/models"
)

// OrderCache associates a dispatch message id with the recipients
// extracted from it, so a later completion reaction can be correlated
// back. Records live for a fixed retention window; a completed order
// is deliberately left in place until TTL expiry so a duplicate
// reaction re-sends instead of silently dropping.
type OrderCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    Clock
	orders map[string]*models.OrderRecord
}

// NewOrderCache creates a cache with the given retention window.
// A nil clock uses the system clock.
func NewOrderCache(ttl time.Duration, now Clock) *OrderCache {
	if now == nil {
		now = systemClock
	}
	return &OrderCache{
		ttl:    ttl,
		now:    now,
		orders: make(map[string]*models.OrderRecord),
	}
}

// Record stores or overwrites the order entry for messageID and purges
// any entry past the retention window.
func (c *OrderCache) Record(messageID, groupID string, recipients []string, text string) {
	if messageID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.orders[messageID] = &models.OrderRecord{
		MessageID:    messageID,
		GroupID:      groupID,
		Recipients:   append([]string(nil), recipients...),
		OriginalText: text,
		CreatedAt:    now,
	}

	for id, rec := range c.orders {
		if now.Sub(rec.CreatedAt) > c.ttl {
			delete(c.orders, id)
		}
	}
}

// Lookup returns the record for messageID if present and not expired.
// Purging is opportunistic, so expiry is re-checked here and expired
// entries are evicted on access. A miss means nothing to correlate.
func (c *OrderCache) Lookup(messageID string) (*models.OrderRecord, bool) {
	if messageID == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.orders[messageID]
	if !ok {
		return nil, false
	}
	if c.now().Sub(rec.CreatedAt) > c.ttl {
		delete(c.orders, messageID)
		return nil, false
	}

	cp := *rec
	cp.Recipients = append([]string(nil), rec.Recipients...)
	return &cp, true
}

// Len reports the number of retained records.
func (c *OrderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}
