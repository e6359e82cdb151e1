package index

import (
	"strings"
	"sync"
	"time"
)

// LookupResult is a cached validator answer.
type LookupResult struct {
	exists     bool
	unknownLaw bool
}

type cacheEntry struct {
	result    LookupResult
	expiresAt time.Time
}

// LookupCache is a thread-safe, in-memory TTL cache of validator answers.
// Entries are lazily expired on access.
type LookupCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	defaultTTL time.Duration
}

// NewLookupCache creates a cache with the given TTL.
func NewLookupCache(defaultTTL time.Duration) *LookupCache {
	return &LookupCache{
		entries:    make(map[string]cacheEntry),
		defaultTTL: defaultTTL,
	}
}

// Get returns the cached answer for key if present and not expired.
func (c *LookupCache) Get(key string) (LookupResult, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return LookupResult{}, false
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Another goroutine may have refreshed it meanwhile.
		if current, ok := c.entries[key]; ok && time.Now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return LookupResult{}, false
	}

	return entry.result, true
}

// Set stores an answer with the default TTL.
func (c *LookupCache) Set(key string, result LookupResult) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		result:    result,
		expiresAt: time.Now().Add(c.defaultTTL),
	}
	c.mu.Unlock()
}

// InvalidateLaw removes every entry of lawID.
func (c *LookupCache) InvalidateLaw(lawID string) int {
	prefix := lawID + "|"
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, including expired ones not yet
// cleaned up.
func (c *LookupCache) Len() int {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()
	return count
}

// Cleanup removes all expired entries and returns how many were removed.
func (c *LookupCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			expired++
		}
	}
	return expired
}
