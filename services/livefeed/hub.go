// Package livefeed pushes registration events to connected admin dashboards
// over WebSocket so new submissions and decisions show up without polling.
package livefeed

import (
	"encoding/json"
	"sync"
	"time"

	fiberws "github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// Event types broadcast to admins.
const (
	EventRegistrationCreated = "registration.created"
	EventStatusChanged       = "registration.status_changed"
)

// Event is one feed entry.
type Event struct {
	Type string      `json:"type"`
	Time time.Time   `json:"time"`
	Data interface{} `json:"data"`
}

type client struct {
	conn *fiberws.Conn
	send chan []byte
}

// Hub fans events out to every connected admin. Slow clients are dropped
// rather than allowed to block the broadcast path.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Broadcast queues an event for every connected client.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	raw, err := json.Marshal(Event{Type: eventType, Time: time.Now().UTC(), Data: data})
	if err != nil {
		logrus.WithError(err).Error("livefeed marshal failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- raw:
		default:
			// buffer full; the writer loop will tear the client down
		}
	}
}

// ClientCount reports the number of connected admins.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve runs a connection until it closes. It must be called from inside a
// fiber websocket handler.
func (h *Hub) Serve(conn *fiberws.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 16)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for raw := range c.send {
			if err := conn.WriteMessage(fiberws.TextMessage, raw); err != nil {
				return
			}
		}
	}()

	// Read loop: the feed is one-way, but reading detects disconnects and
	// answers pings.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// Deregister before closing the channel so no broadcast can race the
	// close; Broadcast holds the read lock while sending.
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
	<-done
	_ = conn.Close()
}
