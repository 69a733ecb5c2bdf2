package model

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID `gorm:"type:uuid;not null;index"`
	Title          string    `gorm:"type:text;not null"`
	IsTemporary    bool      `gorm:"not null;default:false"`
	LastActivityAt time.Time `gorm:"not null;index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Chat) TableName() string {
	return "chats"
}

// Message rows are ordered per chat by created_at; the composite index serves
// both the ascending listing and the newest-N history window.
type Message struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatId    uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_chat_created,priority:1"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Role      string    `gorm:"type:varchar(10);not null"`
	Content   string    `gorm:"type:text;not null"`
	Image     *string   `gorm:"type:text"`
	Prompt    *string   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;index:idx_messages_chat_created,priority:2"`
}

func (Message) TableName() string {
	return "messages"
}
