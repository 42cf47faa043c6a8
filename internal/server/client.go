package server

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 512
	sendBufferSize = 16
)

var (
	ErrClientInactive = errors.New("client is inactive")
	ErrSendBufferFull = errors.New("send channel full")
)

// Client is one browser websocket connection.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	onRead func(*Client, []byte)
	logger *slog.Logger
}

// NewClient wraps conn and starts its pumps. onRead receives inbound text frames.
func NewClient(conn *websocket.Conn, onRead func(*Client, []byte)) *Client {
	id := uuid.New().String()
	c := &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		onRead: onRead,
		logger: slog.Default().With("module", "ws_client", "client_id", id),
	}

	go c.writePump()
	go c.readPump()

	return c
}

// ID returns the client ID
func (c *Client) ID() string {
	return c.id
}

// Send queues a message. A slow client loses messages instead of blocking the sender.
func (c *Client) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrClientInactive
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClientInactive
	default:
		c.logger.Warn("WebSocket client send channel full, dropping message")
		return ErrSendBufferFull
	}
}

// Close closes the client connection. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// readPump handles incoming messages from the WebSocket connection
func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Unexpected WebSocket close error", slog.Any("error", err))
			}
			return
		}
		if msgType == websocket.TextMessage && c.onRead != nil {
			c.onRead(c, data)
		}
	}
}

// writePump handles outgoing messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
