package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache 本地 LRU 缓存, 条目过期后视为不存在
type TTLCache[K comparable, V any] struct {
	lru *lru.Cache[K, cacheItem[V]]
	ttl time.Duration
	now func() time.Time
}

// NewTTLCache creates a cache holding at most size entries for ttl each.
func NewTTLCache[K comparable, V any](size int, ttl time.Duration) (*TTLCache[K, V], error) {
	l, err := lru.New[K, cacheItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[K, V]{lru: l, ttl: ttl, now: time.Now}, nil
}

func (c *TTLCache[K, V]) Set(key K, value V) {
	c.lru.Add(key, cacheItem[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Get 获取缓存，若不存在或已过期则 ok 为 false
func (c *TTLCache[K, V]) Get(key K) (value V, ok bool) {
	item, ok := c.lru.Get(key)
	if !ok {
		return value, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		return value, false
	}
	return item.value, true
}

func (c *TTLCache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}
