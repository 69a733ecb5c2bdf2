package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateChatRequest struct {
	Title string `json:"title" validate:"omitempty,max=120"`
}

type ChatResponse struct {
	Id             uuid.UUID `json:"_id"`
	Title          string    `json:"title"`
	IsTemporary    bool      `json:"isTemporary"`
	LastActivityAt time.Time `json:"lastActivity"`
	UserId         uuid.UUID `json:"user"`
}

type MessageResponse struct {
	Id        uuid.UUID `json:"_id"`
	ChatId    uuid.UUID `json:"chat"`
	UserId    uuid.UUID `json:"user"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Image     *string   `json:"image,omitempty"`
	Prompt    *string   `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ImageTurnResponse is the body of the synchronous image upload endpoint.
type ImageTurnResponse struct {
	Chat      uuid.UUID `json:"chat"`
	Content   string    `json:"content"`
	ImageData string    `json:"imageData,omitempty"`
	Title     string    `json:"title,omitempty"`
	MimeType  string    `json:"mimeType"`
}
