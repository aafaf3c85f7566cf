package job

import (
	"sync"
)

// StatusCache remembers the status of the most recent jobs.
type StatusCache struct {
	// Size is the number of statuses kept; when full, the oldest
	// entry is evicted to make room.
	Size int

	// In arrival order, so eviction is from the front.
	cache []cacheEntry
	sync.RWMutex
}

type cacheEntry struct {
	ID     ID
	Status Status
}

func (c *StatusCache) SetStatus(id ID, status Status) {
	if c.Size <= 0 {
		return
	}
	c.Lock()
	defer c.Unlock()
	if i := c.statusIndex(id); i >= 0 {
		c.cache[i].Status = status
		return
	}
	if c.Size <= len(c.cache) {
		c.cache = c.cache[len(c.cache)-(c.Size-1):]
	}
	c.cache = append(c.cache, cacheEntry{
		ID:     id,
		Status: status,
	})
}

func (c *StatusCache) Status(id ID) (Status, bool) {
	c.RLock()
	defer c.RUnlock()
	i := c.statusIndex(id)
	if i < 0 {
		return Status{}, false
	}
	return c.cache[i].Status, true
}

func (c *StatusCache) statusIndex(id ID) int {
	for i := range c.cache {
		if c.cache[i].ID == id {
			return i
		}
	}
	return -1
}
