package cachestore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries bounds the in-memory store when no size is configured.
const DefaultMemoryEntries = 4096

// MemoryStore is an LRU-bounded in-memory store for development and tests.
type MemoryStore struct {
	cache *lru.Cache[string, []byte]
}

// NewMemory creates an in-memory store holding at most maxEntries entries.
func NewMemory(maxEntries int) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	cache, err := lru.New[string, []byte](maxEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache}, nil
}

// Get returns the entries present in the cache for the given keys.
func (s *MemoryStore) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	entries := make(map[string][]byte)
	for _, key := range keys {
		if value, ok := s.cache.Get(key); ok {
			entries[key] = value
		}
	}
	return entries, nil
}

// Put stores all entries, evicting the least recently used on overflow.
func (s *MemoryStore) Put(ctx context.Context, entries map[string][]byte) error {
	for key, value := range entries {
		s.cache.Add(key, value)
	}
	return nil
}

// Close purges the cache.
func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}
