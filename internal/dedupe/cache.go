package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

type slot[V any] struct {
	value V
	ts    time.Time
}

// Cache keeps a fixed-size set of recently stored keys, optionally with values.
// A ttl <= 0 disables expiry; the oldest insertions are evicted first once
// capacity is exceeded. Safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	items    map[string]slot[V]
	order    []entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache[V]{
		items:    make(map[string]slot[V], capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the value stored for key when it is present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.items[key]; ok && !c.expired(s.ts, now) {
		return s.value, true
	}
	var zero V
	return zero, false
}

// Set stores value under key, replacing any previous value.
func (c *Cache[V]) Set(key string, value V) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = slot[V]{value: value, ts: now}
	c.order = append(c.order, entry{key: key, ts: now})
	c.compact(now)
}

// IsSeen returns true when the key has already been observed inside the ttl window.
// It does not mark the key as seen; use MarkSeen() to record a key.
func (c *Cache[V]) IsSeen(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// MarkSeen records that a key has been processed.
func (c *Cache[V]) MarkSeen(key string) {
	var zero V
	c.Set(key, zero)
}

// Len reports the number of live keys.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Reset drops every entry.
func (c *Cache[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]slot[V], c.capacity)
	c.order = c.order[:0]
}

func (c *Cache[V]) expired(ts, now time.Time) bool {
	return c.ttl > 0 && now.Sub(ts) > c.ttl
}

func (c *Cache[V]) compact(now time.Time) {
	for len(c.order) > 0 && (len(c.items) > c.capacity || c.expired(c.order[0].ts, now)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if s, ok := c.items[oldest.key]; ok {
			if s.ts == oldest.ts {
				delete(c.items, oldest.key)
			}
		}
	}

	// Re-setting a key leaves stale order entries behind; rebuild when they pile up.
	if len(c.order) > 2*c.capacity {
		live := make([]entry, 0, len(c.items))
		for _, e := range c.order {
			if s, ok := c.items[e.key]; ok && s.ts == e.ts {
				live = append(live, e)
			}
		}
		c.order = live
	}
}
