package store

import "sync"

// Cache maps a plan id to the artifact generated for one exact reviewed
// state, identified by the plan's fingerprint at generation time.
//
// Reads compare the stored fingerprint against the caller's freshly computed
// one; a mismatch is a miss and evicts the stale entry. Writers additionally
// evict eagerly on every plan mutation, so the fingerprint comparison is a
// second line of defense rather than the only one.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	fingerprint string
	artifact    string
}

// NewCache returns an empty artifact cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached artifact for the plan if one exists and was
// generated for the given fingerprint. A stale entry is evicted and reported
// as a miss.
func (c *Cache) Get(planID, fingerprint string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[planID]
	if !ok {
		return "", false
	}
	if entry.fingerprint != fingerprint {
		delete(c.entries, planID)
		return "", false
	}
	return entry.artifact, true
}

// Put stores an artifact for the plan, replacing any previous entry.
func (c *Cache) Put(planID, artifact, fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[planID] = cacheEntry{fingerprint: fingerprint, artifact: artifact}
}

// Invalidate drops the plan's entry if present.
func (c *Cache) Invalidate(planID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, planID)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
