package handler

import (
	"context"
	"errors"

	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/internal/pkg/serverutils"
	internalWS "aura-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	handshakeNoToken      = "Authentication error: No token provided"
	handshakeInvalidToken = "Authentication error: Invalid token"
)

type ChatSocketHandler struct {
	ctx    context.Context
	tokens *serverutils.TokenVerifier
	hub    *internalWS.Hub
	turns  internalWS.TurnRunner
	opts   internalWS.Options
	logger logger.ILogger
}

// NewChatSocketHandler serves the chat gateway. ctx is the server lifetime;
// turns keep running across a client disconnect until it is cancelled.
func NewChatSocketHandler(
	ctx context.Context,
	tokens *serverutils.TokenVerifier,
	hub *internalWS.Hub,
	turns internalWS.TurnRunner,
	opts internalWS.Options,
	log logger.ILogger,
) *ChatSocketHandler {
	return &ChatSocketHandler{ctx: ctx, tokens: tokens, hub: hub, turns: turns, opts: opts, logger: log}
}

func (h *ChatSocketHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/chat", h.ServeWs)
}

// ServeWs authenticates the handshake before upgrading; a rejected
// handshake never becomes a connection.
func (h *ChatSocketHandler) ServeWs(c *fiber.Ctx) error {
	userID, err := h.tokens.Verify(serverutils.TokenFromRequest(c))
	if errors.Is(err, serverutils.ErrMissingToken) {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, handshakeNoToken))
	}
	if err != nil {
		h.logger.Warn("ChatSocketHandler", "Invalid token in WS handshake", map[string]interface{}{"ip": c.IP()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, handshakeInvalidToken))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.serve(conn, userID)
	})(c)
}

func (h *ChatSocketHandler) serve(conn *websocket.Conn, userID uuid.UUID) {
	h.logger.Info("ChatSocketHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
	internalWS.ServeWs(h.ctx, h.hub, conn, userID, h.turns, h.opts, h.logger)
	h.logger.Info("ChatSocketHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
}
