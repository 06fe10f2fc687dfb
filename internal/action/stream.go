package action

import (
	"iter"
	"sync"
)

// Event types published on an action's stream key.
const (
	EventProgress = "progress"
	EventError    = "error"
)

// Event is a progress or error message emitted during Execute.
type Event struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"` // stable error identifier, e.g. "task-unavailable"
	Message string `json:"message"`
}

// Publisher delivers events to whoever subscribed to a stream key.
type Publisher interface {
	Publish(key string, ev Event)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(key string, ev Event)

func (f PublisherFunc) Publish(key string, ev Event) { f(key, ev) }

// Stream is the one-way event channel for a single action execution.
// Publishing after Close is a no-op; Close is idempotent.
type Stream struct {
	key string
	pub Publisher

	mu     sync.Mutex
	closed bool
}

// NewStream creates a stream bound to the given stream key. A nil
// publisher discards events.
func NewStream(key string, pub Publisher) *Stream {
	return &Stream{key: key, pub: pub}
}

// Key returns the stream key callers subscribe to.
func (s *Stream) Key() string { return s.key }

// Publish emits an event to subscribers.
func (s *Stream) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pub == nil {
		return
	}
	s.pub.Publish(s.key, ev)
}

// Progress emits a progress event.
func (s *Stream) Progress(msg string) {
	s.Publish(Event{Type: EventProgress, Message: msg})
}

// Error emits an error event with a stable identifier.
func (s *Stream) Error(id string, err error) {
	s.Publish(Event{Type: EventError, ID: id, Message: err.Error()})
}

// Close finalizes the stream. Later publishes are dropped.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Relay adapts a channel of events into a lazy, finite sequence that
// forwards each upstream event unchanged. The sequence ends when the
// channel is closed and cannot be restarted: ranging over it a second
// time yields only events not consumed by the first pass.
func Relay(events <-chan Event) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for ev := range events {
			if !yield(ev) {
				return
			}
		}
	}
}
