package api

import (
	"container/list"
	"net/url"
	"sync"
	"time"
)

// cacheEntry holds one cached response body plus its insertion time.
// An entry is valid iff now-insertedAt <= ttl; stale entries are
// treated as absent and purged lazily at Get time.
type cacheEntry struct {
	key        string
	body       []byte
	insertedAt time.Time
}

// ResponseCache is a TTL + bounded-capacity store of response bodies
// keyed by canonical request identity. When an insert would exceed
// capacity the least-recently-accessed entry is evicted first. All
// operations are short, non-blocking critical sections behind a single
// mutex; the cache never suspends while holding it.
type ResponseCache struct {
	mu         sync.Mutex
	ll         *list.List
	items      map[string]*list.Element
	ttl        time.Duration
	maxEntries int

	now func() time.Time
}

// NewResponseCache creates a cache holding at most maxEntries bodies,
// each valid for ttl after insertion. maxEntries must be positive and
// ttl non-negative.
func NewResponseCache(maxEntries int, ttl time.Duration) (*ResponseCache, error) {
	if maxEntries <= 0 {
		return nil, configError("cache_max_entries must be positive")
	}
	if ttl < 0 {
		return nil, configError("cache_ttl_secs must be non-negative")
	}
	return &ResponseCache{
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}, nil
}

// Get returns the cached body for key if present and fresh. A hit
// refreshes the entry's recency.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.insertedAt) > c.ttl {
		c.ll.Remove(elem)
		delete(c.items, key)
		return nil, false
	}
	c.ll.MoveToFront(elem)
	return entry.body, true
}

// Set stores body under key, refreshing the insertion timestamp if the
// key already exists and evicting the least-recently-used entry when
// over capacity.
func (c *ResponseCache) Set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.body = body
		entry.insertedAt = c.now()
		c.ll.MoveToFront(elem)
		return
	}

	elem := c.ll.PushFront(&cacheEntry{key: key, body: body, insertedAt: c.now()})
	c.items[key] = elem

	for c.ll.Len() > c.maxEntries {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		evicted := c.ll.Remove(oldest).(*cacheEntry)
		delete(c.items, evicted.key)
	}
}

// Delete removes key if present. It is the explicit-invalidation hook
// for callers that want to force the next lookup back to the network,
// such as a refresh keybinding.
func (c *ResponseCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.ll.Remove(elem)
		delete(c.items, key)
	}
}

// Len returns the current number of entries, stale ones included.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// cacheKey derives the canonical identity of a request: endpoint path
// plus the query in stable key order, so identical logical requests
// always produce identical keys.
func cacheKey(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	// url.Values.Encode sorts by key.
	return path + "?" + query.Encode()
}
