package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is used when Put is called with a non-positive ttl.
const DefaultTTL = 5 * time.Minute

type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

// Cache is a time-boxed memoization table for upstream responses.
// Expired entries are treated as absent and evicted lazily on lookup.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	maxEntries int

	now func() time.Time
}

// New creates a Cache. maxEntries <= 0 disables the size cap; expiry alone
// bounds the table for realistic query diversity, the cap is a safety net.
func New(defaultTTL time.Duration, maxEntries int) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Key builds a deterministic cache key from an endpoint identifier and the
// full request parameters. params must be JSON-serializable.
func Key(endpoint string, params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		data = []byte(fmt.Sprintf("%+v", params))
	}
	sum := sha256.Sum256(append([]byte(endpoint+"|"), data...))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for key if it has not expired. A stale entry
// is deleted on the way out.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Put stores value under key until now+ttl. A non-positive ttl falls back to
// the cache's default.
func (c *Cache) Put(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictOldest()
		}
	}

	now := c.now()
	c.entries[key] = entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len reports the number of stored entries, including any not yet lazily
// evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest removes the entry with the earliest creation time. Caller
// holds the lock.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey = k
			oldest = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
