// Package cache is the short-lived transcript cache keyed by video ID.
// Entries expire after a fixed TTL and the cache is capacity-bounded with
// insertion-order eviction — deliberately not LRU: reads never refresh an
// entry's position.
package cache

import (
	"sync"
	"time"

	"tubebrief/models"
)

const (
	DefaultTTL      = 10 * time.Minute
	DefaultCapacity = 50
)

type entry struct {
	transcript *models.Transcript
	createdAt  time.Time
}

type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]entry
	order    []string
	now      func() time.Time
}

func New(ttl time.Duration, capacity int) *Cache {
	return newCache(ttl, capacity, time.Now)
}

func newCache(ttl time.Duration, capacity int, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]entry, capacity),
		now:      now,
	}
}

// Get returns the cached transcript for videoID. An entry past its TTL is
// treated as absent and removed.
func (c *Cache) Get(videoID string) (*models.Transcript, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[videoID]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) > c.ttl {
		c.remove(videoID)
		return nil, false
	}
	return e.transcript, true
}

// Put stores transcript under videoID. Eviction of the oldest-inserted entry
// happens under the same lock as the insert so the size bound always holds.
func (c *Cache) Put(videoID string, transcript *models.Transcript) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[videoID]; ok {
		c.remove(videoID)
	}
	c.entries[videoID] = entry{transcript: transcript, createdAt: c.now()}
	c.order = append(c.order, videoID)

	for len(c.order) > c.capacity {
		c.remove(c.order[0])
	}
}

// Purge drops every expired entry. Run periodically by the janitor.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.ttl)
	for id, e := range c.entries {
		if e.createdAt.Before(cutoff) {
			c.remove(id)
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove must be called with the lock held.
func (c *Cache) remove(videoID string) {
	delete(c.entries, videoID)
	for i, id := range c.order {
		if id == videoID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
