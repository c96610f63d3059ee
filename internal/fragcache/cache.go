// Package fragcache memoizes compiled fragments for the life of a process.
//
// Keys come from ir.FragmentKey: shape, options fingerprint and the
// row-limit flag. The key space is bounded by the shapes an application
// actually uses, so there is no eviction; Reset clears everything at once.
package fragcache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/queryvalues/internal/ir"
)

// CompileFunc builds the fragment for a key on a miss.
type CompileFunc func() (*ir.Fragment, error)

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Compiles uint64 `json:"compiles"`
	Entries  int    `json:"entries"`
}

// Cache is safe for concurrent use. Construct one per process and share it.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*ir.Fragment
	group   singleflight.Group

	hits     atomic.Uint64
	misses   atomic.Uint64
	compiles atomic.Uint64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*ir.Fragment)}
}

// GetOrCompile returns the fragment cached under key, compiling it on a
// miss. Concurrent misses on one key share a single compile and all
// receive the same *ir.Fragment. A failed compile is not cached; the next
// call tries again.
func (c *Cache) GetOrCompile(key string, compile CompileFunc) (*ir.Fragment, error) {
	if f, ok := c.get(key); ok {
		c.hits.Add(1)
		return f, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have stored it between get and Do.
		if f, ok := c.get(key); ok {
			return f, nil
		}

		c.compiles.Add(1)
		f, err := compile()
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, &ir.Error{Code: ir.ErrCodeInternalInvariant, Message: "compile returned no fragment"}
		}
		return c.store(key, f), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ir.Fragment), nil
}

func (c *Cache) get(key string) (*ir.Fragment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.entries[key]
	return f, ok
}

// store keeps the first fragment written under key and returns it.
func (c *Cache) store(key string, f *ir.Fragment) *ir.Fragment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[key]; ok {
		return prev
	}
	c.entries[key] = f
	return f
}

// Len returns the number of cached fragments.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the counters and current size.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Compiles: c.compiles.Load(),
		Entries:  c.Len(),
	}
}

// Reset drops every entry. Counters are kept.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*ir.Fragment)
}
