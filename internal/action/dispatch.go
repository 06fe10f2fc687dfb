package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"flowtail/internal/cachestore"
)

// Dispatcher runs actions against a cache store: prefetch the keys the
// action names, execute, persist the returned entries, extract the
// response. Each Dispatch call is synchronous; concurrent calls for the
// same key are not serialized here and race as last-writer-wins.
type Dispatcher struct {
	store cachestore.Store
	pub   Publisher
	log   *slog.Logger
}

// NewDispatcher creates a dispatcher. pub may be nil if no one subscribes
// to stream events.
func NewDispatcher(store cachestore.Store, pub Publisher, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{store: store, pub: pub, log: log}
}

// Dispatch executes the action to completion and returns its response.
func (d *Dispatcher) Dispatch(ctx context.Context, act Action) (json.RawMessage, error) {
	spec, err := act.FormatRequest()
	if err != nil {
		return nil, fmt.Errorf("format request: %w", err)
	}

	existing, err := d.store.Get(ctx, spec.PrefetchKeys)
	if err != nil {
		return nil, fmt.Errorf("prefetch cache entries: %w", err)
	}

	stream := NewStream(spec.StreamKey, d.pub)
	results, err := act.Execute(ctx, spec.Message, existing, stream, spec.Invalidate)
	if err != nil {
		d.log.Warn("action execute failed", "stream_key", spec.StreamKey, "error", err)
		return nil, err
	}

	if err := d.store.Put(ctx, results); err != nil {
		return nil, fmt.Errorf("persist cache entries: %w", err)
	}

	return act.Response(results)
}
