package presence

import (
	"log"
	"sync"
	"time"

	"visitor-tracker-backend/internal/model"

	"github.com/gorilla/websocket"
)

// Conn is one live socket. Meta carries the durable identity (role and
// visitor id) that is also written to the store, so the registry can treat
// its own maps as a rebuildable cache.
type Conn struct {
	ID   string
	Meta model.ConnectionMetaItem

	ws       *websocket.Conn
	send     chan interface{}
	done     chan struct{}
	mu       sync.Mutex
	isClosed bool
}

func newConn(ws *websocket.Conn, meta model.ConnectionMetaItem) *Conn {
	return &Conn{
		ID:   meta.ConnID,
		Meta: meta,
		ws:   ws,
		send: make(chan interface{}, 16),
		done: make(chan struct{}),
	}
}

// enqueue hands a payload to the write loop. Best-effort: a client that
// cannot keep up loses the message, never blocks the actor.
func (c *Conn) enqueue(payload interface{}) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Conn) keepAlive() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.isClosed {
				c.mu.Unlock()
				return
			}
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()

			if err != nil {
				log.Printf("Ping error for connection %s: %v", c.ID, err)
				return
			}
		}
	}
}

func (c *Conn) writeLoop() {
	defer func() {
		c.mu.Lock()
		c.isClosed = true
		c.ws.Close()
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload, ok := <-c.send:
			if !ok {
				return
			}

			c.mu.Lock()
			if c.isClosed {
				c.mu.Unlock()
				return
			}
			err := c.ws.WriteJSON(payload)
			c.mu.Unlock()

			if err != nil {
				log.Printf("Error sending message to connection %s: %v", c.ID, err)
				return
			}
		}
	}
}

func (c *Conn) readLoop(actor *Actor) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in readLoop: %v", r)
		}

		close(c.done)
		actor.connectionClosed(c)
		log.Printf("Connection %s closed for tenant %s", c.ID, c.Meta.TenantID)
	}()

	c.ws.SetReadLimit(64 * 1024)

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				if closeErr.Code == websocket.CloseNormalClosure ||
					closeErr.Code == websocket.CloseGoingAway ||
					closeErr.Code == websocket.CloseNoStatusReceived {
					break
				}
			}
			log.Printf("Error reading from connection %s: %v", c.ID, err)
			break
		}

		actor.handleFrame(c, raw)
	}
}
