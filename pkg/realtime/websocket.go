package realtime

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Served behind the API's CORS policy and token auth
		return true
	},
}

// wsConn serializes writes, gorilla connections allow one concurrent writer
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return c.conn.Close()
}

// ServeWebSocket upgrades an authenticated request and joins it to userID's topic
// until the client disconnects.
func ServeWebSocket(hub *Hub, userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Realtime] Failed to upgrade connection for user %s: %v", userID, err)
		return
	}

	c := &wsConn{conn: conn}
	sub, err := hub.Join(userID, c)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	log.Printf("[Realtime] WebSocket connected for user %s", userID)

	// Read loop keeps the connection open and detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	hub.Leave(userID, sub)
	log.Printf("[Realtime] WebSocket disconnected for user %s", userID)
}
