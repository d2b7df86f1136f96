package cache

import (
	"container/list"
	"sync"
)

// DefaultCapacity is the number of entries a cache holds when none is configured.
const DefaultCapacity = 20

// LRU is a count-limited cache with least-recently-used eviction.
// It is safe for concurrent use.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front is the most recently used entry
}

type lruEntry[V any] struct {
	key   string
	value V
}

// NewLRU creates a cache holding at most capacity entries.
func NewLRU[V any](capacity int) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the value for key and marks it most recently used. A miss does
// not touch the recency order.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry[V]).value, true
}

// Put stores value under key and returns the key it evicted, if any. An
// existing key is only refreshed: its stored value is kept as is. A single
// entry is evicted per insert, so a lowered capacity is reached gradually.
func (c *LRU[V]) Put(key string, value V) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return nil
	}

	c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value})

	var evicted []string
	if c.order.Len() > c.capacity {
		evicted = append(evicted, c.evictOldest())
	}
	return evicted
}

// evictOldest removes the least recently used entry. Caller holds c.mu.
func (c *LRU[V]) evictOldest() string {
	elem := c.order.Back()
	entry := elem.Value.(*lruEntry[V])
	c.order.Remove(elem)
	delete(c.items, entry.key)
	return entry.key
}

// Clear drops every entry and returns how many were removed.
func (c *LRU[V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.order.Len()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	return n
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the cached keys from least to most recently used.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		keys = append(keys, elem.Value.(*lruEntry[V]).key)
	}
	return keys
}

// Capacity returns the current entry limit.
func (c *LRU[V]) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity
}

// SetCapacity changes the entry limit. Entries above the new limit are not
// evicted until the next Put of a new key.
func (c *LRU[V]) SetCapacity(capacity int) {
	if capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = capacity
}
