// Package notify pushes server events to connected websocket clients and
// runs the recurring reminder job.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/timeforge/pkg/logger"
	"github.com/okian/timeforge/pkg/metrics"
)

// Message types pushed to clients.
const (
	TypeUpcomingEvent = "upcoming_event"
	TypeStreakSummary = "streak_summary"
	TypeEventChanged  = "event_changed"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxReadBytes = 4096
)

// ErrHubClosed is returned by ServeWS after Close.
var ErrHubClosed = errors.New("notify: hub closed")

// Message is one server push.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type client struct {
	owner string
	conn  *websocket.Conn
	send  chan []byte
	once  sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks websocket clients per owner.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	total    int
	closed   bool
	upgrader websocket.Upgrader
	log      logger.Logger
}

// NewHub returns an empty hub.
func NewHub(l logger.Logger) *Hub {
	if l == nil {
		l = logger.Get().Named("notify")
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: l,
	}
}

// ServeWS upgrades the request and streams owner's messages until the
// client disconnects. It blocks for the lifetime of the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, owner string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{owner: owner, conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		_ = conn.Close()
		return ErrHubClosed
	}
	h.log.Debug(r.Context(), "websocket client connected", logger.String("owner", owner))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()
	h.readPump(c)
	h.unregister(c)
	<-done
	h.log.Debug(r.Context(), "websocket client disconnected", logger.String("owner", owner))
	return nil
}

// Broadcast sends msg to every client of owner and returns how many were reached.
// Slow clients whose buffer is full miss the message.
func (h *Hub) Broadcast(owner string, msg Message) int {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error(context.Background(), "marshal push message", logger.String("type", msg.Type), logger.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.clients[owner] {
		select {
		case c.send <- payload:
			sent++
		default:
			h.log.Warn(context.Background(), "dropping push for slow client",
				logger.String("owner", owner), logger.String("type", msg.Type))
		}
	}
	return sent
}

// Clients returns the number of connections open for owner.
func (h *Hub) Clients(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[owner])
}

// Total returns the number of open connections.
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			c.close()
		}
	}
	h.clients = make(map[string]map[*client]struct{})
	h.total = 0
	metrics.UpdateWebsocketClients(0)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.owner]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.owner] = set
	}
	set[c] = struct{}{}
	h.total++
	metrics.UpdateWebsocketClients(h.total)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.owner]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.owner)
	}
	h.total--
	metrics.UpdateWebsocketClients(h.total)
	c.close()
}

// readPump drains client frames so control messages are processed; it
// returns when the connection fails or the peer closes.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxReadBytes)
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

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
