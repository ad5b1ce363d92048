package ernconfig

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// SharedCache is the lock-guarded, opt-in cache spec §5 describes for
// memoizing expensive per-key work (e.g. a parsed-schema lookup) across
// concurrent operations. Nothing in erncore constructs one on its own;
// callers that don't create one get no caching and no locking.
type SharedCache struct {
	group singleflight.Group
	mu    sync.RWMutex
	vals  map[string]any
}

// NewSharedCache returns an empty SharedCache ready for concurrent use.
func NewSharedCache() *SharedCache {
	return &SharedCache{vals: make(map[string]any)}
}

// GetOrCompute returns the cached value for key, computing it with fn if
// absent. Concurrent callers requesting the same key block on the same
// in-flight computation rather than duplicating it (singleflight).
func (c *SharedCache) GetOrCompute(key string, fn func() (any, error)) (any, error) {
	c.mu.RLock()
	if v, ok := c.vals[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		if v, ok := c.vals[key]; ok {
			c.mu.RUnlock()
			return v, nil
		}
		c.mu.RUnlock()

		v, err := fn()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.vals[key] = v
		c.mu.Unlock()
		return v, nil
	})
	return v, err
}

// Invalidate removes key from the cache, if present.
func (c *SharedCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.vals, key)
	c.mu.Unlock()
}

// Reset clears the entire cache.
func (c *SharedCache) Reset() {
	c.mu.Lock()
	c.vals = make(map[string]any)
	c.mu.Unlock()
}
