package push

import (
	"sync"

	"golang.org/x/net/websocket"
)

// Envelope is the wire frame for every pushed event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Conn wraps a websocket connection as a registry handle. Sends are
// serialized so concurrent fanout pushes never interleave frames.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.ws, Envelope{
		Event: event,
		Data:  payload,
	})
}
