package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ClientConfig sizes a connection's limits.
type ClientConfig struct {
	// SendBuffer is the number of outbound frames queued before sends are
	// dropped.
	SendBuffer int

	// MaxMessageSize is the largest inbound frame accepted from the peer.
	MaxMessageSize int64
}

// DefaultClientConfig returns the limits used when nothing is configured.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SendBuffer:     256,
		MaxMessageSize: 64 * 1024,
	}
}

// Client is a wrapper for a single websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string
	cfg  ClientConfig
	log  *slog.Logger

	// send is the outbound queue drained by WritePump. It is closed once,
	// under mu, when ReadPump exits.
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, cfg ClientConfig) *Client {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultClientConfig().SendBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultClientConfig().MaxMessageSize
	}
	id := uuid.NewString()
	return &Client{
		hub:  hub,
		conn: conn,
		id:   id,
		cfg:  cfg,
		log:  hub.log.With("conn", id),
		send: make(chan []byte, cfg.SendBuffer),
	}
}

// ID returns the connection's UUID.
func (c *Client) ID() string { return c.id }

// AttemptSend queues a frame without blocking. It returns false when the
// queue is full or the connection is already closing.
func (c *Client) AttemptSend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
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

// ReadPump pumps frames from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The
// application ensures that there is at most one reader on a connection by
// executing all reads from this goroutine. When ReadPump returns the hub has
// seen the disconnect.
func (c *Client) ReadPump() {
	session := c.hub.Attach(c)

	defer func() {
		session.Close()
		c.closeSend()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Frames are read raw: a frame that is not a valid message is
		// dropped without ending the connection.
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		_ = session.HandleFrame(data)
	}
}

// WritePump pumps frames from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// ReadPump closed the queue.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("write failed", "error", err)
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
