// Package events streams live game updates to websocket spectators. The hub
// implements the runner's Notifier interface, so every turn the runner
// persists is also pushed to anyone watching that game.
package events

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"snake-arena/backend/internal/wire"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Upgrader configures the WebSocket upgrader. Spectating is public, so any
// origin is accepted.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket spectator subscribed to a single game
type Client struct {
	GameID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub tracks connected spectators and fans game events out to them
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// HandleWebSocket upgrades the connection and subscribes it to the game named
// in the game_id query parameter
func (h *Hub) HandleWebSocket(c *gin.Context) {
	gameID := c.Query("game_id")
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game_id is required"})
		return
	}

	conn, err := Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[EVENTS] WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		GameID: gameID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	go client.writePump()
	go client.readPump(h)
}

// GameStarted broadcasts the opening board state
func (h *Hub) GameStarted(gameID string, state *wire.GameState) {
	h.broadcast(gameID, WSMessage{Type: "game_started", Payload: state})
}

// GameTurn broadcasts one turn's board state
func (h *Hub) GameTurn(gameID string, state *wire.GameState) {
	h.broadcast(gameID, WSMessage{Type: "game_turn", Payload: state})
}

// GameFinished broadcasts the final placements
func (h *Hub) GameFinished(gameID string, placements map[string]int) {
	h.broadcast(gameID, WSMessage{Type: "game_finished", Payload: gin.H{
		"game_id":    gameID,
		"placements": placements,
	}})
}

func (h *Hub) broadcast(gameID string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[EVENTS] Failed to encode %s event: %v", msg.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.GameID != gameID {
			continue
		}
		select {
		case client.Send <- data:
		default:
			// Slow consumer; drop the frame rather than stall the game.
		}
	}
}

// remove unregisters a client and closes its send channel so writePump's
// range terminates. Closing under the write lock keeps broadcast from sending
// on the closed channel. Safe to call more than once.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
	h.mu.Unlock()
}

// readPump drains the connection so pings and close frames are processed.
// Spectators send nothing meaningful; any read error tears the client down.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.remove(c)
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
