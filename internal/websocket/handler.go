package websocket

import (
	"context"

	"aura-chat-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type Options struct {
	ReadLimit int64
	QueueSize int
}

// ServeWs runs one authenticated connection until the peer goes away. ctx
// bounds the turns started from it, not the connection.
func ServeWs(ctx context.Context, hub *Hub, conn *websocket.Conn, userID uuid.UUID, turns TurnRunner, opts Options, log logger.ILogger) {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	client := &Client{
		hub:        hub,
		conn:       conn,
		userID:     userID,
		send:       make(chan []byte, 256),
		turns:      make(chan []byte, opts.QueueSize),
		dispatcher: newDispatcher(turns, userID, log),
		readLimit:  opts.ReadLimit,
		logger:     log,
	}
	if !hub.add(client) {
		_ = conn.Close()
		return
	}

	written := make(chan struct{})
	go func() {
		defer close(written)
		client.writePump()
	}()
	go client.runTurns(ctx)

	// The hijacked connection is released when this returns, so wait for the writer.
	client.readPump()
	<-written
}
