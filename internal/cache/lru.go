package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

var _ Cache[int] = (*LRUCache[int])(nil)

// LRUCache is an in-process cache bounded by entry count and entry age.
// The list is ordered most recently used first. A maxSize of zero or less
// leaves the cache unbounded in size.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	index   map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

type lruEntry[T any] struct {
	key     string
	value   T
	expires time.Time
}

func (e *lruEntry[T]) expired(now time.Time) bool {
	return now.After(e.expires)
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		index:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the value for key and marks it recently used. Expired
// entries are dropped on read.
func (c *LRUCache[T]) Get(_ context.Context, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entry(key)
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with a fresh TTL.
func (c *LRUCache[T]) Set(_ context.Context, key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.index[key]; ok {
		e := el.Value.(*lruEntry[T])
		e.value, e.expires = value, expires
		c.order.MoveToFront(el)
		return
	}

	c.index[key] = c.order.PushFront(&lruEntry[T]{key: key, value: value, expires: expires})
	c.shrink()
}

func (c *LRUCache[T]) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if el, ok := c.index[key]; ok {
			c.unlink(el)
		}
	}
}

// CleanExpired drops every expired entry and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*lruEntry[T]).expired(now) {
			c.unlink(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// entry looks up a live entry and promotes it. Caller holds mu.
func (c *LRUCache[T]) entry(key string) (*lruEntry[T], bool) {
	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*lruEntry[T])
	if e.expired(c.now()) {
		c.unlink(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e, true
}

// shrink evicts from the cold end until the size bound holds.
func (c *LRUCache[T]) shrink() {
	if c.maxSize <= 0 {
		return
	}
	for c.order.Len() > c.maxSize {
		c.unlink(c.order.Back())
	}
}

func (c *LRUCache[T]) unlink(el *list.Element) {
	delete(c.index, el.Value.(*lruEntry[T]).key)
	c.order.Remove(el)
}
