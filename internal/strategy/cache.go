package strategy

import (
	"container/list"
	"sync"
	"time"
)

const (
	defaultHintTTL      = 15 * time.Minute
	defaultHintCapacity = 64
)

// Hint is a remembered strategy decision for one origin.
type Hint struct {
	Analysis Analysis
	StoredAt time.Time
}

type hintEntry struct {
	origin string
	hint   Hint
}

// HintCache remembers the last strategy decision per page origin. Entries are
// advisory only: site layouts change between runs, so a hint informs logging
// and prompt context but never replaces a fresh analysis.
type HintCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	order    *list.List
	items    map[string]*list.Element

	now func() time.Time
}

// NewHintCache builds a cache with the given TTL and entry cap. Non-positive
// arguments fall back to the defaults.
func NewHintCache(ttl time.Duration, capacity int) *HintCache {
	if ttl <= 0 {
		ttl = defaultHintTTL
	}
	if capacity <= 0 {
		capacity = defaultHintCapacity
	}
	return &HintCache{
		ttl:      ttl,
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Put records the analysis for an origin, displacing the least recently used
// entry when the cache is full. Empty origins are not cached.
func (c *HintCache) Put(origin string, analysis Analysis) {
	if origin == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hint := Hint{Analysis: analysis, StoredAt: c.now()}

	if elem, ok := c.items[origin]; ok {
		elem.Value.(*hintEntry).hint = hint
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*hintEntry).origin)
		}
	}

	c.items[origin] = c.order.PushFront(&hintEntry{origin: origin, hint: hint})
}

// Get returns the remembered hint for an origin. Expired entries are evicted
// and reported as misses.
func (c *HintCache) Get(origin string) (Hint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[origin]
	if !ok {
		return Hint{}, false
	}

	entry := elem.Value.(*hintEntry)
	if c.now().Sub(entry.hint.StoredAt) > c.ttl {
		c.order.Remove(elem)
		delete(c.items, origin)
		return Hint{}, false
	}

	c.order.MoveToFront(elem)
	return entry.hint, true
}

// Len reports the number of live entries, expired ones included until their
// next lookup.
func (c *HintCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
