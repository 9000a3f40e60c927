package poll

import (
	"sync"
	"time"
)

// Cache holds the most recent Result per host plus the completion time of
// the latest poll cycle. Writers are the per-host poll goroutines (at most
// one per host at a time, by scheduler construction); readers are the HTTP
// handlers, any number concurrently. A host has no entry until its first
// poll completes, which is how readers tell "never polled" apart from
// "polled and failed".
type Cache struct {
	mu        sync.RWMutex
	results   map[string]Result
	cycleTime time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		results: make(map[string]Result),
	}
}

// Write replaces the entry for result.Host. The previous result, if any, is
// discarded; no history is kept.
func (c *Cache) Write(result Result) {
	c.mu.Lock()
	c.results[result.Host] = result
	c.mu.Unlock()
}

// CompleteCycle records the start time of the poll cycle that just finished
// writing all its results.
func (c *Cache) CompleteCycle(started time.Time) {
	c.mu.Lock()
	c.cycleTime = started
	c.mu.Unlock()
}

// Snapshot returns a fresh copy of the full mapping plus the latest cycle
// time. The copy is made under one read lock, so it is internally
// consistent; callers own it and may not affect the cache through it.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make(map[string]Result, len(c.results))
	for alias, result := range c.results {
		results[alias] = result
	}

	return Snapshot{
		Results:   results,
		CycleTime: c.cycleTime,
	}
}

// Len returns the number of hosts with at least one recorded result.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}
