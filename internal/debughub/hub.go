// Package debughub streams interaction stack events to attached debugger
// clients over websockets. The hub is transport only; rendering lives in the
// debugger client.
package debughub

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/openframes/framehost/internal/logx"
	"github.com/openframes/framehost/internal/stack"
)

// Event is one stack transition broadcast to every attached client.
type Event struct {
	SessionID string          `json:"sessionId"`
	Stack     json.RawMessage `json:"stack"`
}

type client struct {
	send chan []byte
}

// Hub fans stack events out to attached websocket clients. Slow clients are
// dropped rather than allowed to stall the broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Publish broadcasts one event. It never blocks; clients whose send buffer
// is full miss the event.
func (h *Hub) Publish(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
		}
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Handler accepts debugger websocket connections and streams events until
// the client disconnects.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = ws.Close(websocket.StatusInternalError, "server error") }()

		c := &client{send: make(chan []byte, 32)}
		h.add(c)
		defer h.remove(c)
		logx.Log.Debug().Str("remote_addr", r.RemoteAddr).Msg("debug client attached")

		ctx := r.Context()
		go func() {
			// Drain reads so pings and close frames are processed.
			for {
				if _, _, err := ws.Read(ctx); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-c.send:
				if err := ws.Write(ctx, websocket.MessageText, msg); err != nil {
					return
				}
			}
		}
	}
}

// Observer adapts the hub to a session's stack observer callback. The
// returned func is assignable to stack.SessionConfig.OnStackChange.
func (h *Hub) Observer(sessionID string) func(s stack.Stack) {
	return func(s stack.Stack) {
		b, err := json.Marshal(s)
		if err != nil {
			return
		}
		h.Publish(Event{SessionID: sessionID, Stack: b})
	}
}
