// Package cache provides a bounded, ordered in-memory map.
package cache

import (
	"container/list"
	"sync"
)

// Policy decides which entry goes first once the capacity is exceeded.
type Policy int

const (
	// InsertionOrder evicts the oldest inserted key. Re-putting a key keeps
	// its original position.
	InsertionOrder Policy = iota
	// LeastRecentlyUsed evicts the key that was read or written longest ago.
	LeastRecentlyUsed
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Bounded is safe for concurrent use.
type Bounded[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	policy   Policy
	order    *list.List
	items    map[K]*list.Element
	onEvict  func(K)
}

// New creates a cache holding at most capacity entries (minimum 1).
func New[K comparable, V any](capacity int, policy Policy) *Bounded[K, V] {
	return &Bounded[K, V]{
		capacity: max(1, capacity),
		policy:   policy,
		order:    list.New(),
		items:    make(map[K]*list.Element),
	}
}

// OnEvict registers a callback invoked, under the cache lock, for every
// evicted key.
func (c *Bounded[K, V]) OnEvict(fn func(K)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

func (c *Bounded[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.policy == LeastRecentlyUsed {
		c.order.MoveToBack(el)
	}
	return el.Value.(*entry[K, V]).value, true
}

// Put stores value under key and evicts until the cache is within capacity.
func (c *Bounded[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		if c.policy == LeastRecentlyUsed {
			c.order.MoveToBack(el)
		}
		return
	}

	c.items[key] = c.order.PushBack(&entry[K, V]{key: key, value: value})
	for len(c.items) > c.capacity {
		oldest := c.order.Front()
		e := c.order.Remove(oldest).(*entry[K, V])
		delete(c.items, e.key)
		if c.onEvict != nil {
			c.onEvict(e.key)
		}
	}
}

func (c *Bounded[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

func (c *Bounded[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Bounded[K, V]) Capacity() int {
	return c.capacity
}
