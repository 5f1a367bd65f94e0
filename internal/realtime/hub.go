package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"taskmarket/internal/events"
)

const writeWait = 5 * time.Second

// conn serialises writes: a websocket connection allows one writer at a time.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// Hub keeps the open execution-event sockets of each user and implements
// events.Publisher: an event is pushed to every socket of its execution's user.
type Hub struct {
	mu    sync.RWMutex
	users map[int64]map[*conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users: make(map[int64]map[*conn]struct{}),
	}
}

// Serve registers ws for userID and blocks until the client disconnects.
// Client messages are discarded; the read loop is what handles ping and
// close frames.
func (h *Hub) Serve(userID int64, ws *websocket.Conn) {
	c := &conn{ws: ws}
	h.register(userID, c)
	defer h.unregister(userID, c)

	for {
		if _, _, err := ws.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) register(userID int64, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[*conn]struct{})
	}
	h.users[userID][c] = struct{}{}
}

func (h *Hub) unregister(userID int64, c *conn) {
	h.mu.Lock()
	if conns, ok := h.users[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}
	h.mu.Unlock()
	_ = c.ws.Close()
}

// Connections reports how many sockets userID has open.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Publish never fails: a socket that cannot be written is closed, and its
// Serve loop removes it.
func (h *Hub) Publish(_ context.Context, ev events.ExecutionEvent) error {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.users[ev.UserID]))
	for c := range h.users[ev.UserID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.writeJSON(ev); err != nil {
			log.Printf("[realtime][publish][err] userID=%d exec=%d: %v", ev.UserID, ev.ExecutionID, err)
			_ = c.ws.Close()
		}
	}
	return nil
}

func (h *Hub) Close() error {
	h.mu.RLock()
	var all []*conn
	for _, conns := range h.users {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
	for _, c := range all {
		c.mu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.mu.Unlock()
		_ = c.ws.Close()
	}
	return nil
}
