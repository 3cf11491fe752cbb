package chat

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
)

// Client is one websocket connection bound to a room.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	room   string
	userID string
	send   chan []byte
}

// inbound is what the browser sends over the socket.
type inbound struct {
	Action    string `json:"action"` // "", "edit", "delete"
	MessageID string `json:"messageId,omitempty"`
	Text      string `json:"text,omitempty"`
	ReplyToID string `json:"replyToId,omitempty"`
}

func newClient(hub *Hub, conn *websocket.Conn, room, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		room:   room,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

// detach hands the client back to the hub. The hub may already be stopped,
// in which case nobody drains unregister and the send would block forever.
func (c *Client) detach() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// readPump consumes socket frames and hands them to the message layer.
func (c *Client) readPump() {
	defer func() {
		c.detach()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("chat read error:", err)
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			continue
		}

		switch in.Action {
		case "edit":
			handleEdit(c, in)
		case "delete":
			handleDelete(c, in)
		default:
			handleSend(c, in)
		}
	}
}

// writePump pushes hub payloads and pings down the socket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
