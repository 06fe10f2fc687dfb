package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"flowtail/internal/action"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // UI clients connect cross-origin
	},
}

// handleStream serves GET /ws/logs?key=log:stream:{id}: upgrade, then
// forward every event published on the key until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if !strings.HasPrefix(key, "log:stream:") {
		http.Error(w, "key must be a log:stream: key", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := s.hub.Subscribe(key)
	defer s.hub.Unsubscribe(key, events)

	// Reader loop exists only to notice disconnects; unsubscribing
	// closes the channel and ends the relay below.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				s.hub.Unsubscribe(key, events)
				return
			}
		}
	}()

	for ev := range action.Relay(events) {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}
