package live

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pcprep/pcprep-api/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 32
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage is what browsers may send on the socket.
type clientMessage struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Serve streams the room of one event to conn, starting with snapshot, and
// returns once the peer disconnects.
func (h *Hub) Serve(conn *websocket.Conn, eventID uint, snapshot domain.LiveMessage) {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	c.enqueue(snapshot)
	unsubscribe := h.Subscribe(eventID, c.enqueue)

	go c.writePump()
	c.readPump(func(msg clientMessage) {
		if msg.Type == "presence" {
			h.Touch(eventID, msg.Name)
		}
	})

	unsubscribe()
	close(c.done)
}

// enqueue drops the message when the client is too slow. Clients reconcile
// against the status endpoint.
func (c *client) enqueue(msg domain.LiveMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		zap.L().Error("live: failed to encode message", zap.Error(err))
		return
	}

	select {
	case <-c.done:
	case c.send <- payload:
	default:
		zap.L().Debug("live: dropping message for slow client", zap.Uint("event_id", msg.EventID))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(onMessage func(clientMessage)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("live: unexpected close", zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		onMessage(msg)
	}
}
