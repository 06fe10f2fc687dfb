package server

import (
	"sync"

	"flowtail/internal/action"
)

// subscriber channel depth; slow consumers drop events rather than
// blocking action execution.
const subscriberBuffer = 16

// Hub fans action events out to stream-key subscribers. It implements
// action.Publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan action.Event]struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan action.Event]struct{})}
}

// Subscribe registers interest in a stream key. The returned channel is
// closed by Unsubscribe.
func (h *Hub) Subscribe(key string) chan action.Event {
	ch := make(chan action.Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan action.Event]struct{})
	}
	h.subs[key][ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// more than once for the same channel.
func (h *Hub) Unsubscribe(key string, ch chan action.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[key]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(h.subs, key)
	}
	close(ch)
}

// Publish delivers an event to all subscribers of the key. Events to
// full subscriber channels are dropped.
func (h *Hub) Publish(key string, ev action.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[key] {
		select {
		case ch <- ev:
		default:
		}
	}
}
