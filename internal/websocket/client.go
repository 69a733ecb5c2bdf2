package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID

	// Buffered channel of outbound frames.
	send chan []byte
	// Inbound frames waiting for the turn worker, in arrival order.
	turns chan []byte

	mu     sync.RWMutex
	closed bool

	dispatcher *dispatcher
	readLimit  int64
	logger     logger.ILogger
}

// Emit frames an event and queues it for this connection. Once the
// connection is gone the frame goes to the user's other connections instead;
// a live connection with a full buffer just drops it.
func (c *Client) Emit(event string, data interface{}) {
	frame, err := json.Marshal(dto.SocketEnvelope{Event: event, Data: data})
	if err != nil {
		c.logger.Error("Client", "Failed to encode frame", map[string]interface{}{
			"user_id": c.userID,
			"event":   event,
			"error":   err,
		})
		return
	}
	if c.trySend(frame) || !c.isClosed() {
		return
	}
	c.hub.SendToUser(c.userID, frame)
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// trySend reports false when the connection is closed or its buffer is full.
func (c *Client) trySend(frame []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn("Client", "Send buffer full, dropping frame", map[string]interface{}{
			"user_id": c.userID,
			"size":    len(frame),
		})
		return false
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump hands frames to the turn worker and never waits on AI work.
func (c *Client) readPump() {
	defer func() {
		c.logger.Debug("Client", "readPump exiting", map[string]interface{}{"user_id": c.userID})
		close(c.turns)
		c.hub.remove(c)
		c.shutdown()
	}()
	if c.readLimit > 0 {
		c.conn.SetReadLimit(c.readLimit)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Client", "Unexpected close", map[string]interface{}{
					"user_id": c.userID,
					"error":   err,
				})
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case c.turns <- frame:
		default:
			c.logger.Warn("Client", "Turn queue full, frame rejected", map[string]interface{}{"user_id": c.userID})
			c.dispatcher.reject(frame, c)
		}
	}
}

// runTurns processes one turn at a time. Turns already queued when the
// connection drops still run; their replies fall back to the hub.
func (c *Client) runTurns(ctx context.Context) {
	for frame := range c.turns {
		c.dispatcher.dispatch(ctx, frame, c)
	}
}

// writePump pumps frames from the send channel to the websocket connection.
func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One envelope per websocket message; clients parse frames individually.
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("Client", "Write failed", map[string]interface{}{
					"user_id": c.userID,
					"error":   err,
				})
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
