// Package cache holds short-lived public API responses keyed by path.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache is a TTL map with a purge generation. A reader takes the
// generation before it loads from storage and hands it back to Set, so a
// page read before a concurrent write is dropped instead of outliving the
// purge that write triggered.
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
	gen uint64
	now func() time.Time
}

type entry struct {
	val any
	exp time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (c *Cache) Get(key string) (any, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		// another reader may have refreshed it meanwhile
		if cur, ok := c.m[key]; ok && now.After(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.val, true
}

// Generation changes whenever PurgePath runs.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Set stores val unless a purge happened since gen was taken. It reports
// whether the value was stored.
func (c *Cache) Set(key string, val any, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}
	c.m[key] = entry{val: val, exp: c.now().Add(c.ttl)}
	return true
}

// PurgePath drops the entry for path and every query variant of it
// ("/blog" also drops "/blog?limit=10&offset=0"). It returns the count.
func (c *Cache) PurgePath(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++

	n := 0
	for k := range c.m {
		if k == path || strings.HasPrefix(k, path+"?") {
			delete(c.m, k)
			n++
		}
	}
	return n
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
