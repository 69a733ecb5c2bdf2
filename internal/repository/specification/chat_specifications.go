package specification

import (
	"time"

	"aura-chat-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatID struct {
	ChatID uuid.UUID
}

func (s ByChatID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_id = ?", s.ChatID)
}

type ByRole struct {
	Role entity.MessageRole
}

func (s ByRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", string(s.Role))
}

// Chronological orders messages oldest first.
type Chronological struct{}

func (Chronological) Apply(db *gorm.DB) *gorm.DB {
	db = OrderBy{Field: "created_at"}.Apply(db)
	return OrderBy{Field: "id"}.Apply(db)
}

// RecentActivity orders chats by last_activity_at, newest first.
type RecentActivity struct{}

func (RecentActivity) Apply(db *gorm.DB) *gorm.DB {
	return OrderBy{Field: "last_activity_at", Desc: true}.Apply(db)
}

// UpToMessage keeps rows ordered at or before the given message, using id to
// break created_at ties.
type UpToMessage struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func (s UpToMessage) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("(created_at < ? OR (created_at = ? AND id <= ?))", s.CreatedAt, s.CreatedAt, s.ID)
}
