// Package cache provides the process-wide read caches shared by every
// session: entries expire a fixed time after they are stored and concurrent
// misses for one key share a single load.
package cache

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// TTL memoizes load results per key. Errors are never cached.
type TTL[K comparable, V any] struct {
	lru   *expirable.LRU[K, V]
	group singleflight.Group
}

// New creates a TTL cache holding at most size entries for ttl each.
func New[K comparable, V any](size int, ttl time.Duration) *TTL[K, V] {
	if size <= 0 {
		size = 1024
	}
	return &TTL[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

// Get returns the cached value for key, calling load on a miss.
func (c *TTL[K, V]) Get(key K, load func() (V, error)) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		if v, ok := c.lru.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return v, err
		}
		c.lru.Add(key, v)
		return v, nil
	})
	v, _ := res.(V)
	return v, err
}

// Peek returns the cached value without loading or refreshing recency.
func (c *TTL[K, V]) Peek(key K) (V, bool) {
	return c.lru.Peek(key)
}

// Purge drops every entry.
func (c *TTL[K, V]) Purge() { c.lru.Purge() }

// Len returns the number of live entries.
func (c *TTL[K, V]) Len() int { return c.lru.Len() }
