package cachestore_test

import (
	"bytes"
	"context"
	"testing"

	"flowtail/internal/cachestore"
)

func testStore(t *testing.T, store cachestore.Store) {
	t.Helper()
	ctx := context.Background()

	// Miss before any write
	entries, err := store.Get(ctx, []string{"log:file:a"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}

	put := map[string][]byte{
		"log:file:a":   []byte(`{"log_size": 10}`),
		"log:result:b": []byte(`{"pages": 1}`),
	}
	if err := store.Put(ctx, put); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entries, err = store.Get(ctx, []string{"log:file:a", "log:result:b", "log:file:missing"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !bytes.Equal(entries["log:file:a"], put["log:file:a"]) {
		t.Errorf("log:file:a = %q, want %q", entries["log:file:a"], put["log:file:a"])
	}

	// Overwrite
	if err := store.Put(ctx, map[string][]byte{"log:file:a": []byte(`{"log_size": 20}`)}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	entries, err = store.Get(ctx, []string{"log:file:a"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(entries["log:file:a"]) != `{"log_size": 20}` {
		t.Errorf("log:file:a = %q after overwrite", entries["log:file:a"])
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := cachestore.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer store.Close()

	testStore(t, store)
}

func TestMemoryStore(t *testing.T) {
	store, err := cachestore.NewMemory(16)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	defer store.Close()

	testStore(t, store)
}

func TestMemoryStoreEviction(t *testing.T) {
	store, err := cachestore.NewMemory(2)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		if err := store.Put(ctx, map[string][]byte{key: []byte(key)}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	entries, err := store.Get(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := entries["a"]; ok {
		t.Error("oldest entry should have been evicted")
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 surviving entries, got %d", len(entries))
	}
}
