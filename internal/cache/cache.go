// Package cache implements a generic LRU+TTL cache fronting the storage
// engine, plus a write-through tiered variant, with single-flight
// loading, batch prefetch, and pattern invalidation.
package cache

import (
	"container/list"
	"encoding/json"
	"regexp"
	"sync"
	"time"
)

// Sizer estimates the byte footprint of a cached value; the default
// marshals the value to JSON and measures the result.
type Sizer[T any] func(v T) int

func defaultSizer[T any](v T) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}

// Config configures a single-tier Cache.
type Config[T any] struct {
	MaxSize         int
	MaxMemory       int64
	DefaultTTL      time.Duration
	Sizer           Sizer[T]
	CleanupInterval time.Duration
}

type cacheItem[T any] struct {
	key       string
	value     T
	expiresAt time.Time // zero means no expiry
	size      int
}

func (it *cacheItem[T]) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// Cache is a thread-safe, generic LRU cache with per-entry TTL, a byte
// budget, single-flight loading and pattern invalidation.
type Cache[T any] struct {
	mu sync.Mutex

	ll    *list.List
	items map[string]*list.Element

	maxSize    int
	maxMemory  int64
	defaultTTL time.Duration
	sizer      Sizer[T]
	curMemory  int64

	hits, misses, evictions int64

	metrics *Metrics
	onEvent func(name string, payload map[string]any)

	inflight map[string]*inflightCall[T]

	stopCh chan struct{}
	closed bool
}

type inflightCall[T any] struct {
	wg  sync.WaitGroup
	val T
	err error
}

// New constructs a Cache. A zero MaxSize means unbounded entry count; a
// zero MaxMemory means unbounded byte budget.
func New[T any](cfg Config[T]) *Cache[T] {
	sizer := cfg.Sizer
	if sizer == nil {
		sizer = defaultSizer[T]
	}
	c := &Cache[T]{
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		maxSize:    cfg.MaxSize,
		maxMemory:  cfg.MaxMemory,
		defaultTTL: cfg.DefaultTTL,
		sizer:      sizer,
		inflight:   make(map[string]*inflightCall[T]),
	}
	if cfg.CleanupInterval > 0 {
		c.startCleanup(cfg.CleanupInterval)
	}
	return c
}

// SetMetrics attaches a Prometheus metrics recorder, optional and settable
// after construction.
func (c *Cache[T]) SetMetrics(m *Metrics) {
	c.mu.Lock()
	c.metrics = m
	c.mu.Unlock()
}

// OnEvent registers a callback invoked for cache:hit/miss/set/delete/evict
// lifecycle events. Never called while holding the cache lock.
func (c *Cache[T]) OnEvent(fn func(name string, payload map[string]any)) {
	c.mu.Lock()
	c.onEvent = fn
	c.mu.Unlock()
}

func (c *Cache[T]) emit(name string, payload map[string]any) {
	if c.onEvent != nil {
		c.onEvent(name, payload)
	}
}

// Get returns the cached value for k, treating an expired entry as
// absent and removing it lazily. A hit moves the entry to the
// most-recently-used position.
func (c *Cache[T]) Get(k string) (T, bool) {
	c.mu.Lock()
	el, ok := c.items[k]
	if !ok {
		c.misses++
		m := c.metrics
		c.mu.Unlock()
		if m != nil {
			m.RecordCacheMiss()
		}
		c.emit("cache:miss", map[string]any{"key": k})
		var zero T
		return zero, false
	}

	it := el.Value.(*cacheItem[T])
	if it.expired(time.Now()) {
		c.removeElement(el)
		c.misses++
		m := c.metrics
		c.mu.Unlock()
		if m != nil {
			m.RecordCacheMiss()
		}
		c.emit("cache:miss", map[string]any{"key": k})
		var zero T
		return zero, false
	}

	c.ll.MoveToFront(el)
	c.hits++
	m := c.metrics
	val := it.value
	c.mu.Unlock()

	if m != nil {
		m.RecordCacheHit(it.size)
	}
	c.emit("cache:hit", map[string]any{"key": k})
	return val, true
}

// Has reports whether k is present and unexpired, without affecting LRU
// order or hit/miss statistics.
func (c *Cache[T]) Has(k string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[k]
	if !ok {
		return false
	}
	return !el.Value.(*cacheItem[T]).expired(time.Now())
}

// Set inserts or replaces k. A zero ttl uses the cache's default TTL; a
// negative ttl means no expiry. Replacing an existing key is never
// counted as an eviction.
func (c *Cache[T]) Set(k string, v T, ttl time.Duration) {
	c.mu.Lock()

	size := c.sizer(v)
	expiresAt := c.expiryFor(ttl)

	if el, ok := c.items[k]; ok {
		it := el.Value.(*cacheItem[T])
		c.curMemory += int64(size - it.size)
		it.value = v
		it.size = size
		it.expiresAt = expiresAt
		c.ll.MoveToFront(el)
	} else {
		it := &cacheItem[T]{key: k, value: v, expiresAt: expiresAt, size: size}
		el := c.ll.PushFront(it)
		c.items[k] = el
		c.curMemory += int64(size)
	}

	evicted := c.evictToBudget(true)

	m := c.metrics
	sz := len(c.items)
	c.mu.Unlock()

	if m != nil {
		m.SetCacheSize(sz)
	}
	for _, ek := range evicted {
		c.emit("cache:evict", map[string]any{"key": ek})
	}
	c.emit("cache:set", map[string]any{"key": k})
}

func (c *Cache[T]) expiryFor(ttl time.Duration) time.Time {
	switch {
	case ttl < 0:
		return time.Time{}
	case ttl == 0 && c.defaultTTL > 0:
		return time.Now().Add(c.defaultTTL)
	case ttl > 0:
		return time.Now().Add(ttl)
	default:
		return time.Time{}
	}
}

// evictToBudget evicts from the LRU tail until the cache is within its
// size/memory budget and returns the evicted keys for the caller to emit
// cache:evict for once the lock is released. Caller must hold the lock.
// When countEvictions is false (warmUp), entries removed to respect the
// budget still happen but the evictions counter is not bumped and no keys
// are returned for eventing.
func (c *Cache[T]) evictToBudget(countEvictions bool) []string {
	var evicted []string
	for c.overBudget() {
		back := c.ll.Back()
		if back == nil {
			return evicted
		}
		it := back.Value.(*cacheItem[T])
		c.ll.Remove(back)
		delete(c.items, it.key)
		c.curMemory -= int64(it.size)
		if countEvictions {
			c.evictions++
			if c.metrics != nil {
				c.metrics.RecordEviction()
			}
			evicted = append(evicted, it.key)
		}
	}
	return evicted
}

func (c *Cache[T]) overBudget() bool {
	if c.maxSize > 0 && len(c.items) > c.maxSize {
		return true
	}
	if c.maxMemory > 0 && c.curMemory > c.maxMemory {
		return true
	}
	return false
}

// removeElement removes el from both the list and index. Caller must
// hold the lock.
func (c *Cache[T]) removeElement(el *list.Element) {
	it := el.Value.(*cacheItem[T])
	c.ll.Remove(el)
	delete(c.items, it.key)
	c.curMemory -= int64(it.size)
}

// Delete removes k, a no-op if absent.
func (c *Cache[T]) Delete(k string) {
	c.mu.Lock()
	el, ok := c.items[k]
	if ok {
		c.removeElement(el)
	}
	sz := len(c.items)
	m := c.metrics
	c.mu.Unlock()

	if !ok {
		return
	}
	if m != nil {
		m.SetCacheSize(sz)
	}
	c.emit("cache:delete", map[string]any{"key": k})
}

// Clear removes every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.ll = list.New()
	c.items = make(map[string]*list.Element)
	c.curMemory = 0
	m := c.metrics
	c.mu.Unlock()

	if m != nil {
		m.SetCacheSize(0)
	}
}

// WarmUp bulk-inserts seed values without counting any resulting eviction
// toward the evictions statistic, as long as the cache stays within
// budget; entries pushed out purely by exceeding budget during the bulk
// load are still evicted, just silently.
func (c *Cache[T]) WarmUp(seed map[string]T) {
	c.mu.Lock()
	for k, v := range seed {
		size := c.sizer(v)
		expiresAt := c.expiryFor(0)
		if el, ok := c.items[k]; ok {
			it := el.Value.(*cacheItem[T])
			c.curMemory += int64(size - it.size)
			it.value = v
			it.size = size
			it.expiresAt = expiresAt
			c.ll.MoveToFront(el)
		} else {
			it := &cacheItem[T]{key: k, value: v, expiresAt: expiresAt, size: size}
			el := c.ll.PushFront(it)
			c.items[k] = el
			c.curMemory += int64(size)
		}
		c.evictToBudget(false)
	}
	sz := len(c.items)
	m := c.metrics
	c.mu.Unlock()

	if m != nil {
		m.SetCacheSize(sz)
	}
}

// InvalidatePattern removes every key matching p, which is treated as a
// regular expression when it compiles and as a literal substring
// otherwise. Returns the count removed.
func (c *Cache[T]) InvalidatePattern(p string) int {
	re, reErr := regexp.Compile(p)

	c.mu.Lock()
	var toRemove []*list.Element
	for _, el := range c.items {
		it := el.Value.(*cacheItem[T])
		var match bool
		if reErr == nil {
			match = re.MatchString(it.key)
		} else {
			match = containsSubstring(it.key, p)
		}
		if match {
			toRemove = append(toRemove, el)
		}
	}
	for _, el := range toRemove {
		c.removeElement(el)
	}
	sz := len(c.items)
	m := c.metrics
	c.mu.Unlock()

	if m != nil {
		m.SetCacheSize(sz)
	}
	return len(toRemove)
}

func containsSubstring(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// Stats is the aggregate view returned by GetStats.
type Stats struct {
	Size        int
	MemoryUsage int64
	Hits        int64
	Misses      int64
	Evictions   int64
	HitRate     float64
}

// GetStats returns current cache statistics; hitRate is 0 when no
// requests have been made yet.
func (c *Cache[T]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var rate float64
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Size:        len(c.items),
		MemoryUsage: c.curMemory,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		HitRate:     rate,
	}
}

// startCleanup launches the background expired-entry sweep; it is stopped
// by Shutdown.
func (c *Cache[T]) startCleanup(interval time.Duration) {
	c.stopCh = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweepExpired()
			case <-c.stopCh:
				return
			}
		}
	}()
}

func (c *Cache[T]) sweepExpired() {
	now := time.Now()
	c.mu.Lock()
	var expired []*list.Element
	for _, el := range c.items {
		if el.Value.(*cacheItem[T]).expired(now) {
			expired = append(expired, el)
		}
	}
	for _, el := range expired {
		c.removeElement(el)
	}
	c.mu.Unlock()
}

// Shutdown stops the background cleanup task (if any) and clears all
// state.
func (c *Cache[T]) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	stop := c.stopCh
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	c.Clear()
}
