package demo

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"camdash/pkg/models"
)

const (
	writeWait   = 5 * time.Second
	pongWait    = 60 * time.Second
	sendBacklog = 64
)

// Hub fans push envelopes out to every connected websocket client. A client
// that cannot keep up is disconnected rather than slowing the others down.
type Hub struct {
	pingInterval time.Duration

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewHub(pingInterval time.Duration) *Hub {
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &Hub{pingInterval: pingInterval, clients: make(map[*hubClient]struct{})}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends {type, payload} to every client.
func (h *Hub) Broadcast(msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(models.PushMessage{Type: msgType, Payload: raw})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("demo: dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
			h.removeLocked(c)
		}
	}
	return nil
}

// Serve takes ownership of conn until the client goes away.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &hubClient{conn: conn, send: make(chan []byte, sendBacklog), done: make(chan struct{})}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Debug("demo: websocket client connected", "remote", conn.RemoteAddr().String())

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *hubClient) {
	delete(h.clients, c)
	c.once.Do(func() { close(c.done) })
}

// readPump discards inbound frames; it exists to notice the peer closing.
func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
