package dto

import "github.com/google/uuid"

// SocketEnvelope frames every websocket message in both directions.
type SocketEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type TextTurnRequest struct {
	ChatId  uuid.UUID `json:"chat" validate:"required"`
	Content string    `json:"content" validate:"required"`
	Mode    string    `json:"mode,omitempty" validate:"omitempty,oneof=normal thinking"`
}

type ImageTurnRequest struct {
	ChatId    uuid.UUID `json:"chat" validate:"required"`
	Content   string    `json:"content"`
	Image     string    `json:"image" validate:"required"`
	Mode      string    `json:"mode,omitempty" validate:"omitempty,oneof=normal thinking"`
	PreviewId string    `json:"previewId,omitempty" validate:"omitempty,max=128"`
}

type AIResponsePayload struct {
	Content   string    `json:"content"`
	Chat      uuid.UUID `json:"chat"`
	PreviewId string    `json:"previewId,omitempty"`
	ImageData string    `json:"imageData,omitempty"`
	Title     string    `json:"title,omitempty"`
}

type ImageUploadedPayload struct {
	Chat      uuid.UUID `json:"chat"`
	ImageData string    `json:"imageData"`
	PreviewId string    `json:"previewId,omitempty"`
}

type ImageUploadErrorPayload struct {
	Chat      uuid.UUID `json:"chat"`
	Error     string    `json:"error"`
	PreviewId string    `json:"previewId,omitempty"`
}
