package websocket

import (
	"context"
	"encoding/json"

	"aura-chat-be/internal/constant"
	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/internal/pkg/serverutils"
	"aura-chat-be/internal/service"

	"github.com/google/uuid"
)

// TurnRunner is the part of the turn service the gateway drives.
type TurnRunner interface {
	TextTurn(ctx context.Context, userId uuid.UUID, req *dto.TextTurnRequest, emit service.Emitter) error
	ImageTurn(ctx context.Context, userId uuid.UUID, req *dto.ImageTurnRequest, emit service.Emitter) error
}

type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// chatRef pulls just the chat id out of a payload that failed validation.
type chatRef struct {
	ChatId    uuid.UUID `json:"chat"`
	PreviewId string    `json:"previewId"`
}

type dispatcher struct {
	turns  TurnRunner
	userID uuid.UUID
	logger logger.ILogger
}

func newDispatcher(turns TurnRunner, userID uuid.UUID, log logger.ILogger) *dispatcher {
	return &dispatcher{turns: turns, userID: userID, logger: log}
}

func (d *dispatcher) dispatch(ctx context.Context, frame []byte, emit service.Emitter) {
	var env inboundEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		d.logger.Warn("Dispatcher", "Malformed frame", map[string]interface{}{
			"user_id": d.userID,
			"error":   err,
		})
		return
	}

	switch env.Event {
	case constant.EventAIMessage:
		var req dto.TextTurnRequest
		if !d.decode(env, &req, emit) {
			return
		}
		// Turn failures are already reported to the client and logged.
		_ = d.turns.TextTurn(ctx, d.userID, &req, emit)

	case constant.EventAIImageMessage:
		var req dto.ImageTurnRequest
		if !d.decode(env, &req, emit) {
			return
		}
		_ = d.turns.ImageTurn(ctx, d.userID, &req, emit)

	default:
		d.logger.Debug("Dispatcher", "Ignoring unknown event", map[string]interface{}{
			"user_id": d.userID,
			"event":   env.Event,
		})
	}
}

// reject answers a turn that could not be queued.
func (d *dispatcher) reject(frame []byte, emit service.Emitter) {
	var env inboundEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return
	}
	if env.Event == constant.EventAIMessage || env.Event == constant.EventAIImageMessage {
		d.replyError(env.Data, emit)
	}
}

func (d *dispatcher) decode(env inboundEnvelope, req interface{}, emit service.Emitter) bool {
	err := json.Unmarshal(env.Data, req)
	if err == nil {
		err = serverutils.ValidateStruct(req)
	}
	if err != nil {
		d.logger.Warn("Dispatcher", "Invalid turn payload", map[string]interface{}{
			"user_id": d.userID,
			"event":   env.Event,
			"stage":   "decode",
			"error":   err,
		})
		d.replyError(env.Data, emit)
		return false
	}
	return true
}

func (d *dispatcher) replyError(data json.RawMessage, emit service.Emitter) {
	var ref chatRef
	_ = json.Unmarshal(data, &ref)
	emit.Emit(constant.EventAIResponse, dto.AIResponsePayload{
		Content:   constant.ChatGenericErrorReply,
		Chat:      ref.ChatId,
		PreviewId: ref.PreviewId,
	})
}
