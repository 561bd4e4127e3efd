// Package ws fans triggerd events out to WebSocket clients such as
// `trigctl watch`. Clients only listen; anything they send is discarded.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 3 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second
)

// Hub owns the client set. Registration, removal and broadcast all go
// through channels into Run, so only Run touches the map.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	upgrader   websocket.Upgrader
	log        zerolog.Logger

	count   atomic.Int64
	dropped atomic.Int64
}

// NewHub allocates a hub. Call Run in a goroutine to start it.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn, 16),
		unregister: make(chan *websocket.Conn, 16),
		broadcast:  make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: logger.With().Str("component", "ws").Logger(),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.log.Debug().Str("remote", c.RemoteAddr().String()).Msg("client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case msg := <-h.broadcast:
			h.send(websocket.TextMessage, msg)

		case <-ping.C:
			h.send(websocket.PingMessage, nil)
		}
	}
}

func (h *Hub) send(kind int, msg []byte) {
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(kind, msg); err != nil {
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	delete(h.clients, c)
	h.count.Store(int64(len(h.clients)))
	_ = c.Close()
}

// Handler upgrades requests and registers the connection.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		h.register <- conn

		go func() {
			defer func() { h.unregister <- conn }()
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// BroadcastJSON queues v for every client. When the queue is full the
// event is dropped rather than blocking the caller.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.dropped.Add(1)
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Dropped reports how many events were discarded on a full queue.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }
