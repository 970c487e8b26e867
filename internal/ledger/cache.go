package ledger

import (
	"container/list"
	"sync"

	"github.com/roach88/mnemos/internal/ir"
)

// itemCache is a small LRU of decoded hot items in front of the blob
// store. The engine invalidates entries on every committed mutation, so
// the cache never serves a stale form.
type itemCache[T any] struct {
	mu      sync.Mutex
	cap     int
	order   *list.List // front = most recent
	entries map[ir.Key]*list.Element
}

type cacheEntry[T any] struct {
	key  ir.Key
	item T
}

func newItemCache[T any](capacity int) *itemCache[T] {
	return &itemCache[T]{
		cap:     capacity,
		order:   list.New(),
		entries: make(map[ir.Key]*list.Element, capacity),
	}
}

func (c *itemCache[T]) get(key ir.Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry[T]).item, true
}

func (c *itemCache[T]) put(key ir.Key, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry[T]).item = item
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry[T]{key: key, item: item})
	if c.order.Len() > c.cap {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry[T]).key)
	}
}

func (c *itemCache[T]) invalidate(key ir.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

func (c *itemCache[T]) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[ir.Key]*list.Element, c.cap)
}
