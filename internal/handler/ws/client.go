package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"QuotePulse/internal/domain/models"
	applogger "QuotePulse/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Client is one WebSocket connection. It implements fanout.Listener;
// outbound delivery is best-effort through a bounded send channel — a
// full buffer drops the message instead of blocking the fan-out path.
type Client struct {
	id       string
	identity *models.Identity
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	doneOnce sync.Once
	log      *applogger.Logger
}

func newClient(conn *websocket.Conn, identity *models.Identity, log *applogger.Logger) *Client {
	return &Client{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		log:      log,
	}
}

// ID returns the connection's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// close marks the client departed. The send channel is never closed so a
// relay holding a stale reference can still call Send safely; it just drops.
func (c *Client) close() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Send queues an event for delivery. Never blocks; slow consumers lose
// messages rather than stalling other listeners, and sends to a departed
// client are silently dropped.
func (c *Client) Send(event string, payload []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	msg, err := json.Marshal(models.WSEvent{Type: event, Data: payload})
	if err != nil {
		c.log.Error("event marshal failed", applogger.String("event", event), applogger.Error(err))
		return
	}
	select {
	case c.send <- msg:
	default:
		c.log.Warn("send buffer full, dropping message",
			applogger.String("client", c.id),
			applogger.String("event", event))
	}
}

// sendObject marshals data and queues it under the given event type.
func (c *Client) sendObject(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		c.log.Error("payload marshal failed", applogger.String("event", event), applogger.Error(err))
		return
	}
	c.Send(event, payload)
}

func (c *Client) sendError(message string) {
	c.sendObject(models.EventError, models.WSError{Message: message})
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings. One writer per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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
