// Package cache is a bounded in-memory store mapping request fingerprints
// to previously validated responses. Eviction is LRU at capacity; expiry is
// lazy at read time against an absolute TTL from entry creation.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/silli-ai/reasoner/pkg/models"
)

const (
	// DefaultCapacity bounds entry count when no capacity is configured.
	DefaultCapacity = 256
	// DefaultTTL is the per-entry lifetime when none is configured.
	DefaultTTL = 300 * time.Second
)

type entry struct {
	fingerprint string
	response    models.ReasoningResponse
	createdAt   time.Time
	lastAccess  time.Time
	listElem    *list.Element
}

// Cache is safe for concurrent use. All LRU, TTL, and capacity bookkeeping
// happens under one mutex because the three are coupled; callers must not
// hold a model call open while inside any method.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	lru       *list.List // front = most recently used
	capacity  int
	ttl       time.Duration
	hits      int64
	misses    int64
	evictions int64

	now func() time.Time // test hook
}

// New creates a Cache with the given capacity and TTL. A capacity or TTL of
// zero or less yields a disabled cache: Get always misses and Put is a no-op.
func New(capacity int, ttl time.Duration) *Cache {
	return &Cache{
		entries:  make(map[string]*entry),
		lru:      list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Enabled reports whether the cache stores anything at all.
func (c *Cache) Enabled() bool {
	return c.capacity > 0 && c.ttl > 0
}

// Get returns the cached response for a fingerprint. A hit refreshes LRU
// recency but not the TTL clock, which runs from entry creation. An entry
// past its TTL is evicted on the spot and reported as a miss.
func (c *Cache) Get(fingerprint string) (models.ReasoningResponse, bool) {
	if !c.Enabled() {
		return models.ReasoningResponse{}, false
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fingerprint]
	if !ok {
		c.misses++
		return models.ReasoningResponse{}, false
	}

	if now.Sub(e.createdAt) > c.ttl {
		c.removeLocked(e)
		c.misses++
		return models.ReasoningResponse{}, false
	}

	e.lastAccess = now
	c.lru.MoveToFront(e.listElem)
	c.hits++
	return e.response, true
}

// Put stores a validated response under a fingerprint, evicting the
// least-recently-used entry first when at capacity. Re-putting an existing
// fingerprint replaces the response and restarts its TTL.
func (c *Cache) Put(fingerprint string, resp models.ReasoningResponse) {
	if !c.Enabled() {
		return
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[fingerprint]; ok {
		e.response = resp
		e.createdAt = now
		e.lastAccess = now
		c.lru.MoveToFront(e.listElem)
		return
	}

	for len(c.entries) >= c.capacity {
		back := c.lru.Back()
		if back == nil {
			break
		}
		c.removeLocked(back.Value.(*entry))
		c.evictions++
	}

	e := &entry{
		fingerprint: fingerprint,
		response:    resp,
		createdAt:   now,
		lastAccess:  now,
	}
	e.listElem = c.lru.PushFront(e)
	c.entries[fingerprint] = e
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var rate float64
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return models.CacheStats{
		Size:      len(c.entries),
		MaxSize:   c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   rate,
	}
}

// Clear removes all entries and zeroes the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.lru.Init()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

func (c *Cache) removeLocked(e *entry) {
	if e.listElem != nil {
		c.lru.Remove(e.listElem)
		e.listElem = nil
	}
	delete(c.entries, e.fingerprint)
}
