package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore is an in-process LRU. The LRU evicts by the longest TTL it may
// hold; each entry also carries its own deadline.
type MemoryStore struct {
	lru *expirable.LRU[string, memoryEntry]
}

// NewMemoryStore creates a store holding at most size entries.
func NewMemoryStore(size int, maxTTL time.Duration) *MemoryStore {
	if size <= 0 {
		size = 256
	}
	if maxTTL <= 0 {
		maxTTL = DefaultMetadataTTL
	}
	return &MemoryStore{lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL)}
}

func (m *MemoryStore) Get(key string) ([]byte, time.Duration, bool) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, 0, false
	}
	remaining := time.Until(e.expires)
	if remaining <= 0 {
		m.lru.Remove(key)
		return nil, 0, false
	}
	return e.value, remaining, true
}

func (m *MemoryStore) Set(key string, value []byte, ttl time.Duration) error {
	m.lru.Add(key, memoryEntry{value: value, expires: time.Now().Add(ttl)})
	return nil
}

// Len returns the number of live entries.
func (m *MemoryStore) Len() int { return m.lru.Len() }

func (m *MemoryStore) Close() error {
	m.lru.Purge()
	return nil
}
