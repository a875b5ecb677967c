package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Client is one live WebSocket connection.
type Client struct {
	userID  string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	log     *slog.Logger
}

func newClient(userID string, conn *websocket.Conn, limiter *rate.Limiter, log *slog.Logger) *Client {
	return &Client{
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		limiter: limiter,
		log:     log,
	}
}

func (c *Client) UserID() string { return c.userID }

func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Reply sends an event to this connection only.
func (c *Client) Reply(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump reads frames until the socket fails, dispatching each one.
func (c *Client) readPump(ctx context.Context, router *Router, maxBytes int64) {
	defer c.close()

	c.conn.SetReadLimit(maxBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read failed", "user_id", c.userID, "err", err)
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.Reply(NewEvent(TypeError, map[string]any{"detail": "Too many messages"}))
			continue
		}

		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			c.Reply(NewEvent(TypeError, map[string]any{"detail": "Invalid message"}))
			continue
		}
		router.Dispatch(ctx, c, in)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
