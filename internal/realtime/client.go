package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/capitalize-ai/realtime-chat/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one live WebSocket connection.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	log  *logger.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
	userID string
}

func newClient(id string, conn *websocket.Conn, hub *Hub, buffer int) *Client {
	return &Client{
		id:   id,
		conn: conn,
		hub:  hub,
		log:  hub.log.WithConnection(id),
		send: make(chan []byte, buffer),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// UserID returns the user bound by the connect event, if any.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Client) bind(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// enqueue queues a frame without blocking. A full buffer marks the client as
// too slow and closes its send channel.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.log.Warn("send buffer full, dropping connection")
		c.closed = true
		close(c.send)
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump reads frames until the connection fails, handing each to the
// hub's handler. It runs on the upgrading goroutine.
func (c *Client) readPump(ctx context.Context, maxMessageSize int64) {
	defer func() {
		c.hub.unregister(ctx, c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		c.hub.handler.HandleFrame(ctx, c, data)
	}
}

// writePump drains the send channel and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
