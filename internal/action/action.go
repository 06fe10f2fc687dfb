// Package action defines the contract for pluggable cached computations.
// An action derives deterministic cache keys from its inputs, executes
// against previously cached entries, and returns the full set of entries
// to persist. The dispatcher drives the get/execute/put cycle against a
// cache store; deduplication of concurrent identical requests is left to
// whatever runs the dispatcher.
package action

import (
	"context"
	"encoding/json"
)

// RequestSpec describes one action invocation to the executing framework:
// the serialized request message, the cached keys to prefetch before
// execution, the stream key callers subscribe to for progress events, and
// the keys whose values the caller ultimately awaits.
type RequestSpec struct {
	Message      json.RawMessage
	PrefetchKeys []string
	StreamKey    string
	AwaitKeys    []string

	// Invalidate forces a refetch of upstream content regardless of
	// staleness. It rides on the envelope, never on the message, so it
	// cannot perturb key derivation.
	Invalidate bool
}

// Action is a cached computation. Implementations are constructed with
// their request parameters and collaborators; the methods are pure with
// respect to the receiver except for Execute's upstream fetches.
type Action interface {
	// FormatRequest derives the request message and its cache keys.
	// It must fail before any I/O if the request is unsatisfiable.
	FormatRequest() (*RequestSpec, error)

	// Execute runs the computation. existing holds whatever prefetched
	// entries the store currently has; the returned map is the complete
	// set of entries to persist, superseding existing. Execute must
	// finalize stream on every exit path.
	Execute(ctx context.Context, msg json.RawMessage, existing map[string][]byte, stream *Stream, invalidate bool) (map[string][]byte, error)

	// Response extracts the externally consumable result from the
	// persisted entries.
	Response(persisted map[string][]byte) (json.RawMessage, error)
}
