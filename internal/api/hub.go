package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/user/dopewars-engine/internal/interfaces"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// Message is the JSON envelope pushed to news feed subscribers
type Message struct {
	Type     string   `json:"type"`
	PlayerID string   `json:"player_id"`
	Lines    []string `json:"lines"`
}

// Client is one websocket subscriber. An empty player receives every
// player's news.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	player string
}

type envelope struct {
	player  string
	payload []byte
}

// Hub fans game log lines out to connected websocket clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	connected  atomic.Int32
	Logger     *zap.Logger // Will be set by the server
}

var _ interfaces.Notifier = (*Hub)(nil)

// NewHub creates a hub; call Run in its own goroutine
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		Logger:     logger,
	}
}

// Run owns the client registry until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.connected.Add(1)
			h.Logger.Debug("News subscriber connected", zap.String("player_id", client.player))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.player != "" && client.player != msg.player {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Slow reader
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.connected.Add(-1)
}

// Clients returns the number of registered subscribers
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// Notify queues lines for delivery. It never blocks the game; news is
// dropped when the queue is full.
func (h *Hub) Notify(playerID string, lines []string) {
	if len(lines) == 0 {
		return
	}
	payload, err := json.Marshal(Message{Type: "news", PlayerID: playerID, Lines: lines})
	if err != nil {
		h.Logger.Error("Failed to encode news", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{player: playerID, payload: payload}:
	default:
		h.Logger.Warn("News queue full, dropping lines",
			zap.String("player_id", playerID),
			zap.Int("lines", len(lines)))
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and subscribes it to the feed. The optional
// player query parameter narrows the feed to one player.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		player: r.URL.Query().Get("player"),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only watches for the peer going away; subscribers do not talk back
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Debug("Websocket closed", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
