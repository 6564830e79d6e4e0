// Package cache provides the explicit result cache that fronts the
// optimization pipeline: fingerprint-keyed memoization with TTL and
// capacity eviction. It is an ordinary object passed by handle into the
// request layer — deliberately not a module-level singleton — so separate
// servers, tests and tools each own their instance.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
)

// Cache is a TTL + capacity bounded memoization store. Safe for concurrent
// use.
type Cache struct {
	mu           sync.Mutex
	entries      map[string]*list.Element
	order        *list.List // front = oldest insert
	ttl          time.Duration
	capacity     int
	memThreshold float64 // used-memory percent above which Sweep evicts aggressively
	log          zerolog.Logger
}

type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// New creates a cache. capacity <= 0 means unbounded; memThreshold <= 0
// disables memory-pressure eviction.
func New(ttl time.Duration, capacity int, memThreshold float64, log zerolog.Logger) *Cache {
	return &Cache{
		entries:      make(map[string]*list.Element),
		order:        list.New(),
		ttl:          ttl,
		capacity:     capacity,
		memThreshold: memThreshold,
		log:          log.With().Str("component", "result_cache").Logger(),
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.removeLocked(el)
		return nil, false
	}
	return e.value, true
}

// Set stores a value under key, evicting the oldest entries when the cache
// is over capacity.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}

	el := c.order.PushBack(&entry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.entries[key] = el

	for c.capacity > 0 && len(c.entries) > c.capacity {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes expired entries and, under memory pressure, additionally
// drops the oldest half of the cache. Returns the number of evictions.
// Intended to run periodically from the scheduler.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	evicted := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*entry).expiresAt) {
			c.removeLocked(el)
			evicted++
		}
		el = next
	}

	if c.memThreshold > 0 && c.underMemoryPressure() {
		drop := len(c.entries) / 2
		for i := 0; i < drop; i++ {
			oldest := c.order.Front()
			if oldest == nil {
				break
			}
			c.removeLocked(oldest)
			evicted++
		}
		c.log.Warn().
			Int("dropped", drop).
			Msg("Memory pressure: dropped oldest half of result cache")
	}

	if evicted > 0 {
		c.log.Debug().Int("evicted", evicted).Int("remaining", len(c.entries)).Msg("Cache sweep complete")
	}
	return evicted
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.entries, e.key)
	c.order.Remove(el)
}

// underMemoryPressure checks system memory usage via gopsutil. Errors are
// treated as no pressure; the sweep must never fail because a platform
// cannot report memory stats.
func (c *Cache) underMemoryPressure() bool {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return false
	}
	return vm.UsedPercent > c.memThreshold
}
