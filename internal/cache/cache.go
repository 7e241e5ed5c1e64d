package cache

import (
	"sync"
	"time"
)

// Entry is a cached value with the time it was computed.
type Entry[T any] struct {
	Data       T
	ComputedAt time.Time
	TTL        time.Duration
}

// Fresh reports whether the entry is still within its TTL at now.
func (e Entry[T]) Fresh(now time.Time) bool {
	return now.Sub(e.ComputedAt) < e.TTL
}

// Cache holds a single value that expires after a TTL.
type Cache[T any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	entry *Entry[T]
}

// New returns an empty cache. A nil clock uses time.Now.
func New[T any](ttl time.Duration, now func() time.Time) *Cache[T] {
	if now == nil {
		now = time.Now
	}
	return &Cache[T]{ttl: ttl, now: now}
}

// Get returns the cached value and true while it is fresh.
func (c *Cache[T]) Get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	if c.entry == nil || !c.entry.Fresh(c.now()) {
		return zero, false
	}
	return c.entry.Data, true
}

// Set stores data computed now.
func (c *Cache[T]) Set(data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &Entry[T]{Data: data, ComputedAt: c.now(), TTL: c.ttl}
}

// Invalidate drops the cached value.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
}

// Entry returns the last stored entry, fresh or not.
func (c *Cache[T]) Entry() (Entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return Entry[T]{}, false
	}
	return *c.entry, true
}
