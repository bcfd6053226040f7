package ws

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/event"
)

const (
	writeWait  = 10 * time.Second // deadline for a single write
	pongWait   = 60 * time.Second // read deadline, refreshed on pong
	pingPeriod = 54 * time.Second // must be less than pongWait
	sendBuffer = 256              // per-client outbound event buffer
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Identity comes from the JWT, not the origin; browsers
		// enforce their own policies on top.
		return true
	},
}

// Client is one user's live connection.  Outbound events go
// through a buffered channel drained by writePump; the read side
// only services control frames since clients act through the HTTP
// surface, not over the socket.
type Client struct {
	userID uint64
	conn   *websocket.Conn
	send   chan event.Event
	done   chan struct{}

	closeOnce sync.Once
}

// Serve upgrades the request and runs the connection until the
// peer disconnects.  It registers the client on the hub and
// unregisters it when the read loop ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan event.Event, sendBuffer),
		done:   make(chan struct{}),
	}
	h.register(c)
	go c.writePump()
	c.readPump(h)
	return nil
}

// trySend queues an event without blocking.  Returns false when
// the client is gone or its buffer is full.
func (c *Client) trySend(ev event.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// close signals the pumps to stop.  Safe to call from any
// goroutine, any number of times.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump discards inbound frames and watches for disconnect.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.close()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error for user %d: %v", c.userID, err)
			}
			return
		}
	}
}

// writePump drains the send buffer onto the socket and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Printf("ws: write error for user %d: %v", c.userID, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
