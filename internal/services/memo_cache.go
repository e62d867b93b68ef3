package services

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoEntry struct {
	data      interface{}
	expiresAt time.Time
}

// memoCache is a small TTL cache on top of an LRU, used by the GitHub
// client to remember resolved users and recently denied repositories
// across collection runs within one process.
type memoCache struct {
	lru *lru.Cache[string, *memoEntry]
}

func newMemoCache(size int) (*memoCache, error) {
	l, err := lru.New[string, *memoEntry](size)
	if err != nil {
		return nil, err
	}
	return &memoCache{lru: l}, nil
}

func (c *memoCache) Get(key string) (interface{}, bool) {
	e, ok := c.lru.Get(key)
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.data, true
}

func (c *memoCache) Set(key string, val interface{}, ttl time.Duration) {
	c.lru.Add(key, &memoEntry{
		data:      val,
		expiresAt: time.Now().Add(ttl),
	})
}
