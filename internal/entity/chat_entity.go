package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleUser  MessageRole = "user"
	MessageRoleModel MessageRole = "model"
)

type Chat struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	Title          string
	IsTemporary    bool
	LastActivityAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Message is immutable after insert except Image, which the image path
// patches once the upload lands.
type Message struct {
	Id        uuid.UUID
	ChatId    uuid.UUID
	UserId    uuid.UUID
	Role      MessageRole
	Content   string
	Image     *string
	Prompt    *string
	CreatedAt time.Time
}
