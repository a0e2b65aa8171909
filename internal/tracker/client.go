package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client. A client
	// that drops without a close handshake is cleaned up after this window.
	pongWait = 60 * time.Second

	// Send pings to client with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second

	// Maximum message size allowed from client.
	maxMessageSize = 4096

	// Outbound buffer per client. When full, broadcasts to this client are
	// dropped rather than blocking the publisher.
	sendBufferSize = 64
)

// Client owns one websocket connection. It implements Sink: broadcasts and
// replies are queued on the send channel and written by the write pump.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	logger *slog.Logger
	send   chan []byte
}

// newClient wraps an upgraded connection.
func newClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
	}
}

// ID returns the opaque connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Send queues a payload for delivery. It never blocks; it reports false when
// the client's buffer is full and the payload was dropped.
func (c *Client) Send(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// run registers the client with the hub and processes the connection until
// it closes. It blocks until the read side is done.
func (c *Client) run(ctx context.Context) {
	c.hub.Register(c)

	stopCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	go c.writePump(stopCtx, cancel)
	c.readPump(stopCtx)
}

// readPump reads inbound frames and dispatches them in arrival order.
// Message handling for a connection is sequential by construction.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected connection close",
					"connection_id", c.id,
					"error", err,
				)
			}
			return
		}

		c.hub.Dispatch(ctx, c, msg)
	}
}

// writePump drains the send channel to the connection and keeps the
// connection alive with pings.
func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
