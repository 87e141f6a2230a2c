// Package cache provides a small LRU for finished translations, keyed by
// content hash so identical inputs skip the backend entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache wraps a string-keyed LRU. A nil *Cache is a valid no-op, so callers
// can thread an unconfigured cache without guarding every use.
type Cache[V any] struct {
	lru *lru.Cache[string, V]
}

// New builds a cache holding up to size entries. size <= 0 returns nil,
// which disables caching.
func New[V any](size int) (*Cache[V], error) {
	if size <= 0 {
		return nil, nil
	}
	inner, err := lru.New[string, V](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{lru: inner}, nil
}

func (c *Cache[V]) Get(key string) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	return c.lru.Get(key)
}

func (c *Cache[V]) Add(key string, value V) {
	if c == nil {
		return
	}
	c.lru.Add(key, value)
}

func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Key derives a stable cache key from its parts. Parts are joined with a
// separator that cannot occur in source text, so ("a", "bc") and ("ab", "c")
// key differently.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
