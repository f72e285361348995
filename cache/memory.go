package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryCache is an in-memory cache implementation.
//
// Time is read from the injected clock so tests can simulate TTL expiry
// deterministically. State is process-local and not shared across processes.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	clock   clockwork.Clock
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	forever   bool
}

// NewMemoryCache creates a new in-memory cache.
// A nil clock defaults to the real wall clock.
func NewMemoryCache(clock clockwork.Clock) *MemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryCache{
		entries: make(map[string]*memoryEntry),
		clock:   clock,
	}
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or expiry.
// An entry whose expiry instant is at or before the current time is absent.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !entry.forever && !c.clock.Now().Before(entry.expiresAt) {
		// Expired - clean up lazily
		c.evictIfSame(key, entry)
		return nil, false
	}

	return entry.value, true
}

// evictIfSame removes key only if it still maps to the given entry.
// A Set may have replaced the entry between an expiry check and the
// delete, and a blind delete would drop the fresh value.
func (c *MemoryCache) evictIfSame(key string, entry *memoryEntry) {
	c.mu.Lock()
	if cur, ok := c.entries[key]; ok && cur == entry {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// Set stores a value with the given TTL. TTL=0 means no caching;
// TTL=Forever stores an entry that never expires.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	entry := &memoryEntry{value: value}
	switch {
	case ttl == Forever:
		entry.forever = true
	case ttl <= 0:
		return nil
	default:
		entry.expiresAt = c.clock.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including any not yet
// lazily expired.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
