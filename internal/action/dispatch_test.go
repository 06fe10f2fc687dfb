package action_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"flowtail/internal/action"
	"flowtail/internal/cachestore"
)

// echoAction caches its message under a fixed key.
type echoAction struct {
	formatErr error
	execErr   error
	seen      map[string][]byte // existing entries observed by Execute
}

func (a *echoAction) FormatRequest() (*action.RequestSpec, error) {
	if a.formatErr != nil {
		return nil, a.formatErr
	}
	return &action.RequestSpec{
		Message:      json.RawMessage(`{"value": "hello"}`),
		PrefetchKeys: []string{"echo:result"},
		StreamKey:    "echo:stream",
		AwaitKeys:    []string{"echo:stream", "echo:result"},
	}, nil
}

func (a *echoAction) Execute(ctx context.Context, msg json.RawMessage, existing map[string][]byte, stream *action.Stream, invalidate bool) (map[string][]byte, error) {
	defer stream.Close()
	a.seen = existing
	if a.execErr != nil {
		stream.Error("echo-failed", a.execErr)
		return nil, a.execErr
	}
	return map[string][]byte{"echo:result": msg}, nil
}

func (a *echoAction) Response(persisted map[string][]byte) (json.RawMessage, error) {
	return json.RawMessage(persisted["echo:result"]), nil
}

func TestDispatchPersistsAndResponds(t *testing.T) {
	store, err := cachestore.NewMemory(8)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	defer store.Close()

	d := action.NewDispatcher(store, nil, nil)

	resp, err := d.Dispatch(context.Background(), &echoAction{})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if string(resp) != `{"value": "hello"}` {
		t.Errorf("response = %s", resp)
	}

	// The returned entries were persisted.
	entries, err := store.Get(context.Background(), []string{"echo:result"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(entries["echo:result"]) != `{"value": "hello"}` {
		t.Errorf("persisted = %q", entries["echo:result"])
	}
}

func TestDispatchPrefetchesExisting(t *testing.T) {
	store, err := cachestore.NewMemory(8)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	defer store.Close()

	if err := store.Put(context.Background(), map[string][]byte{"echo:result": []byte("cached")}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	act := &echoAction{}
	d := action.NewDispatcher(store, nil, nil)
	if _, err := d.Dispatch(context.Background(), act); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if string(act.seen["echo:result"]) != "cached" {
		t.Errorf("Execute saw %q, want the prefetched entry", act.seen["echo:result"])
	}
}

func TestDispatchRelaysExecuteError(t *testing.T) {
	store, err := cachestore.NewMemory(8)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	defer store.Close()

	var events []action.Event
	pub := action.PublisherFunc(func(key string, ev action.Event) {
		events = append(events, ev)
	})

	boom := errors.New("boom")
	d := action.NewDispatcher(store, pub, nil)
	if _, err := d.Dispatch(context.Background(), &echoAction{execErr: boom}); !errors.Is(err, boom) {
		t.Fatalf("Dispatch error = %v, want boom", err)
	}

	if len(events) != 1 || events[0].ID != "echo-failed" {
		t.Errorf("events = %+v, want the relayed error", events)
	}

	// Nothing persisted on failure.
	entries, err := store.Get(context.Background(), []string{"echo:result"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 0 {
		t.Error("entries were persisted despite execute failure")
	}
}

func TestDispatchFormatRequestError(t *testing.T) {
	store, err := cachestore.NewMemory(8)
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	defer store.Close()

	bad := errors.New("bad request")
	d := action.NewDispatcher(store, nil, nil)
	if _, err := d.Dispatch(context.Background(), &echoAction{formatErr: bad}); !errors.Is(err, bad) {
		t.Errorf("Dispatch error = %v, want bad request", err)
	}
}
