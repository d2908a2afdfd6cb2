package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"school_asset_server/internal/services"
	"school_asset_server/internal/tenant"
	"school_asset_server/pkg/colors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMessage represents a message sent through WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ChangeNotice tells clients which records changed so they can refetch
type ChangeNotice struct {
	Entity string   `json:"entity"`
	Action string   `json:"action"`
	IDs    []string `json:"ids,omitempty"`
}

type wsClient struct {
	conn  *websocket.Conn
	scope string
	send  chan []byte
}

type scopedMessage struct {
	scope   string
	payload []byte
}

// WebSocketHub fans change notices out to the clients of the tenant they
// belong to. It implements services.Notifier.
type WebSocketHub struct {
	clients    map[*wsClient]bool
	broadcast  chan scopedMessage
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	mutex      sync.RWMutex
}

var _ services.Notifier = (*WebSocketHub)(nil)

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan scopedMessage, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every client
func (h *WebSocketHub) Run(ctx context.Context) {
	colors.PrintServer("🔗", "WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			colors.PrintDebug("WebSocket client joined %q. Total clients: %d", client.scope, total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			colors.PrintDebug("WebSocket client left. Total clients: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if client.scope != message.scope {
					continue
				}
				select {
				case client.send <- message.payload:
				default:
					colors.PrintWarning("WebSocket client too slow, dropping it")
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Publish queues a change notice for the event's tenant. Events without a
// scope belong to no tenant and are dropped.
func (h *WebSocketHub) Publish(e services.Event) {
	if e.Scope == "" {
		return
	}
	message := WebSocketMessage{
		Type:      "data_changed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      ChangeNotice{Entity: e.Entity, Action: e.Action, IDs: e.IDs},
	}
	data, err := json.Marshal(message)
	if err != nil {
		colors.PrintError("Failed to encode change notice: %v", err)
		return
	}
	select {
	case h.broadcast <- scopedMessage{scope: e.Scope, payload: data}:
	default:
		colors.PrintWarning("WebSocket broadcast queue full, dropping %s %s", e.Entity, e.Action)
	}
}

// HandleWebSocket upgrades the request and subscribes it to its tenant's
// change notices
func (h *WebSocketHub) HandleWebSocket(c *gin.Context) {
	scope := tenant.ScopeFrom(c.Request.Context())
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		colors.PrintError("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &wsClient{conn: conn, scope: scope, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

// readPump only watches for close and pong frames
func (h *WebSocketHub) readPump(client *wsClient) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.conn.Close()
	}()
	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				colors.PrintError("WebSocket error: %v", err)
			}
			return
		}
	}
}

func (h *WebSocketHub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
