package rowset

import (
	"container/list"
	"sync"

	"github.com/rowset/rowset/cachekey"
)

// MetadataCache is a bounded, least-recently-used cache of resolved row
// metadata keyed by statement cache key. A single coarse mutex guards it, so
// one instance may be shared by concurrently executing statements even
// though results themselves are single-goroutine.
//
// Entries are immutable RowMetadata values; a hit is adapted to the
// replaying statement rather than mutated.
type MetadataCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List
}

type cacheEntry struct {
	key  string
	meta *RowMetadata
}

// NewMetadataCache returns a cache holding at most maxSize entries. A
// non-positive maxSize means 500.
func NewMetadataCache(maxSize int) *MetadataCache {
	if maxSize <= 0 {
		maxSize = 500
	}
	return &MetadataCache{
		maxSize: maxSize,
		entries: map[string]*list.Element{},
		order:   list.New(),
	}
}

// Get returns the metadata cached for key, marking it most recently used.
// A nil key (an uncacheable statement shape) never hits.
func (c *MetadataCache) Get(key *cachekey.Key) (*RowMetadata, bool) {
	if key == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key.String()]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).meta, true
}

// Put stores metadata under key, evicting the least recently used entry
// when full. A nil key is ignored.
func (c *MetadataCache) Put(key *cachekey.Key, meta *RowMetadata) {
	if key == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ks := key.String()
	if elem, ok := c.entries[ks]; ok {
		elem.Value.(*cacheEntry).meta = meta
		c.order.MoveToFront(elem)
		return
	}
	c.entries[ks] = c.order.PushFront(&cacheEntry{key: ks, meta: meta})
	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len returns the number of cached entries.
func (c *MetadataCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
