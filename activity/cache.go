package activity

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/marcus-crane/jellypresence/metadata"
)

// fragmentCache remembers resolved fragments by item ID for the life of the
// process. It grows without bound unless a capacity is given, in which case
// the least recently played items are dropped first.
type fragmentCache struct {
	m       sync.Mutex
	entries map[string]metadata.Fragment
	bounded *lru.Cache[string, metadata.Fragment]
}

func newFragmentCache(capacity int) *fragmentCache {
	if capacity > 0 {
		if bounded, err := lru.New[string, metadata.Fragment](capacity); err == nil {
			return &fragmentCache{bounded: bounded}
		}
	}
	return &fragmentCache{entries: map[string]metadata.Fragment{}}
}

func (c *fragmentCache) get(itemID string) (metadata.Fragment, bool) {
	if c.bounded != nil {
		return c.bounded.Get(itemID)
	}
	c.m.Lock()
	defer c.m.Unlock()
	fragment, ok := c.entries[itemID]
	return fragment, ok
}

func (c *fragmentCache) put(itemID string, fragment metadata.Fragment) {
	if c.bounded != nil {
		c.bounded.Add(itemID, fragment)
		return
	}
	c.m.Lock()
	defer c.m.Unlock()
	c.entries[itemID] = fragment
}

func (c *fragmentCache) len() int {
	if c.bounded != nil {
		return c.bounded.Len()
	}
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.entries)
}
