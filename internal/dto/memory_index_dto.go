package dto

import "github.com/google/uuid"

// PublishMemoryIndexMessage asks the indexer to embed one message into the
// vector memory. Vector is set when the caller already has the embedding.
type PublishMemoryIndexMessage struct {
	MessageId uuid.UUID `json:"message_id"`
	ChatId    uuid.UUID `json:"chat_id"`
	UserId    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Vector    []float32 `json:"vector,omitempty"`
}
