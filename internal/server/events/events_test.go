package events

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"snake-arena/backend/internal/wire"
)

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.clientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.clientCount(), want)
}

func TestRemoveClosesSendChannel(t *testing.T) {
	h := NewHub()
	client := &Client{GameID: "g1", Send: make(chan []byte, 1)}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.remove(client)

	// A closed channel is what lets writePump's range terminate; without it
	// the goroutine blocks forever.
	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("send channel must be closed, not carry a message")
		}
	default:
		t.Fatal("send channel must be closed after remove")
	}

	// Removing twice must not close twice.
	h.remove(client)

	// Broadcasting after removal must not reach the closed channel.
	h.GameFinished("g1", map[string]int{"a": 1})
}

func TestHubBroadcastRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub()
	r := gin.New()
	r.GET("/ws", h.HandleWebSocket)
	server := httptest.NewServer(r)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?game_id=g1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	waitForClients(t, h, 1)

	// Events for other games must not reach this spectator.
	h.GameTurn("other", &wire.GameState{Turn: 9})
	state := &wire.GameState{Turn: 3}
	h.GameTurn("g1", state)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "game_turn" {
		t.Errorf("message type = %q, want game_turn", msg.Type)
	}

	// Disconnecting unregisters the spectator and releases its channel.
	conn.Close()
	waitForClients(t, h, 0)
}
