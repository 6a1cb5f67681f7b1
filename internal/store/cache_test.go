package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_HitOnMatchingFingerprint(t *testing.T) {
	c := NewCache()
	c.Put("plan-1", "agent doc", "1a2b3c")

	got, ok := c.Get("plan-1", "1a2b3c")
	assert.True(t, ok)
	assert.Equal(t, "agent doc", got)
}

func TestCache_MissWhenEmpty(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("plan-1", "1a2b3c")
	assert.False(t, ok)
}

func TestCache_StaleFingerprintEvicts(t *testing.T) {
	c := NewCache()
	c.Put("plan-1", "agent doc", "1a2b3c")

	_, ok := c.Get("plan-1", "ff00aa")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "stale entry should be gone")

	// Even the original fingerprint misses now.
	_, ok = c.Get("plan-1", "1a2b3c")
	assert.False(t, ok)
}

func TestCache_PutReplaces(t *testing.T) {
	c := NewCache()
	c.Put("plan-1", "old doc", "1a2b3c")
	c.Put("plan-1", "new doc", "4d5e6f")

	_, ok := c.Get("plan-1", "1a2b3c")
	assert.False(t, ok)
	got, ok := c.Get("plan-1", "4d5e6f")
	assert.True(t, ok)
	assert.Equal(t, "new doc", got)
}

func TestCache_InvalidateIsScopedToPlan(t *testing.T) {
	c := NewCache()
	c.Put("plan-1", "doc one", "aa")
	c.Put("plan-2", "doc two", "bb")

	c.Invalidate("plan-1")

	_, ok := c.Get("plan-1", "aa")
	assert.False(t, ok)
	got, ok := c.Get("plan-2", "bb")
	assert.True(t, ok)
	assert.Equal(t, "doc two", got)
}
