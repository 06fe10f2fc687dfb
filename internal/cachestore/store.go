// Package cachestore provides key/value storage for cached action results.
// It supports both SQLite (for persistence) and an in-memory LRU (for
// development and tests). Values are opaque serialized blobs; the schema
// behind a value is implied by its key prefix.
package cachestore

import "context"

// Store provides batched get/put access to cached entries.
type Store interface {
	// Get returns the entries for the given keys. Missing keys are simply
	// absent from the returned map; a miss is not an error.
	Get(ctx context.Context, keys []string) (map[string][]byte, error)

	// Put writes all entries, overwriting existing values.
	Put(ctx context.Context, entries map[string][]byte) error

	// Close shuts down the store.
	Close() error
}
