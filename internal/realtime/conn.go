package realtime

import (
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Conn is the write side of a live client connection. The registry and the
// dispatcher only ever need to push JSON frames, so tests can stand in a fake.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// wsConn wraps a fiber websocket connection with a write lock. The dispatcher
// pushes from request-handling goroutines while the gateway writes bulk loads
// from the read loop; websocket conns do not allow concurrent writers.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func NewConn(ws *websocket.Conn) Conn {
	return &wsConn{ws: ws}
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
