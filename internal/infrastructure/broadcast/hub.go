// Package broadcast delivers coordinates change notifications to subscribers.
package broadcast

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/islab/coordinates-registry/internal/api/metrics"
	"github.com/islab/coordinates-registry/internal/core/domain"
)

const writeTimeout = 5 * time.Second

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // gorilla connections allow one concurrent writer
}

func (cl *client) write(msg string) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return cl.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Hub keeps the websocket subscribers of the change topic and pushes every
// event to them as a text frame holding the event message.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[string]*client
	mu       sync.RWMutex
	log      zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		log:     log,
	}
}

// ServeHTTP upgrades the request and blocks until the subscriber goes away.
// Inbound frames are read and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &client{id: uuid.NewString(), conn: conn}
	h.add(cl)
	defer h.remove(cl)

	h.log.Debug().Str("client_id", cl.id).Str("topic", domain.ChangeTopic).Msg("subscriber connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("client_id", cl.id).Msg("subscriber read failed")
			}
			return
		}
	}
}

// Broadcast sends event to every subscriber. Subscribers that cannot be
// written to are dropped.
func (h *Hub) Broadcast(_ context.Context, event domain.ChangeEvent) error {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		targets = append(targets, cl)
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		if err := cl.write(event.Message); err != nil {
			h.log.Debug().Err(err).Str("client_id", cl.id).Msg("dropping subscriber")
			h.remove(cl)
		}
	}
	return nil
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, cl := range clients {
		cl.mu.Lock()
		_ = cl.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		cl.mu.Unlock()
		_ = cl.conn.Close()
	}
	metrics.WebsocketClients.Set(0)
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl.id] = cl
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebsocketClients.Set(float64(n))
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl.id]
	delete(h.clients, cl.id)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		_ = cl.conn.Close()
		metrics.WebsocketClients.Set(float64(n))
	}
}
