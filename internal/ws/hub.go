// Package ws implements the live notification fan-out: a registry
// of WebSocket connections keyed by user id that delivers
// negotiation events to interested clients.  Delivery is
// best-effort and at-most-once; a disconnected client simply
// misses pushes and reconciles through the query service.  No
// event is required for correctness, so a slow subscriber is
// dropped rather than ever blocking a state transition.
package ws

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/event"
)

// presenceTTL bounds how long a crashed instance can leave a user
// marked online in Redis.
const presenceTTL = 5 * time.Minute

// Hub is the subscription registry.  Connections register on
// upgrade and unregister on disconnect; negotiation events arrive
// through Notify and fan out to every registered recipient.  The
// optional Redis client maintains cross-instance presence; when it
// is nil the hub works purely in-process.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]*Client

	rdb *redis.Client
}

// NewHub returns an empty registry.  rdb may be nil.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		clients: make(map[uint64]*Client),
		rdb:     rdb,
	}
}

// register adds a client, replacing (and closing) any previous
// connection for the same user: one live connection per user.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	prev := h.clients[c.userID]
	h.clients[c.userID] = c
	h.mu.Unlock()
	if prev != nil {
		prev.close()
	}
	if h.rdb != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			h.rdb.Set(ctx, presenceKey(c.userID), "1", presenceTTL)
		}()
	}
	log.Printf("ws: user %d connected", c.userID)
}

// unregister removes a client if it is still the registered
// connection for its user.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c.userID] == c {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()
	if h.rdb != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			h.rdb.Del(ctx, presenceKey(c.userID))
		}()
	}
	log.Printf("ws: user %d disconnected", c.userID)
}

// Notify implements event.Notifier.  The event is pushed to every
// recipient with a registered connection; clients whose send
// buffer is full are dropped so one stuck reader cannot back up
// the rest.
func (h *Hub) Notify(ev event.Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(ev.Recipients))
	for _, uid := range ev.Recipients {
		if c, ok := h.clients[uid]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		if !c.trySend(ev) {
			log.Printf("ws: user %d send buffer full, dropping connection", c.userID)
			c.close()
		}
	}
}

// Online reports whether the user currently has a registered
// connection on this instance.
func (h *Hub) Online(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Close tears down every registered connection, e.g. on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[uint64]*Client)
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

func presenceKey(userID uint64) string {
	return "online:" + strconv.FormatUint(userID, 10)
}
