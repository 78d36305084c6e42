package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is the L1 layer: a size-bounded LRU whose entries expire after a
// fixed TTL. It is safe for concurrent use.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates an L1 layer holding at most maxItems entries.
func NewMemory(maxItems int, ttl time.Duration) *Memory {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](maxItems, nil, ttl)}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *Memory) Set(key string, value []byte) {
	m.lru.Add(key, value)
}

func (m *Memory) Delete(key string) {
	m.lru.Remove(key)
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}
