package contract

import (
	"context"

	"aura-chat-be/internal/entity"
	"aura-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// FindRecentByChat returns at most limit messages, oldest to newest.
	FindRecentByChat(ctx context.Context, chatId uuid.UUID, limit int) ([]*entity.Message, error)

	// UserMessageRank is the 1-based position of a user message among the
	// user messages of its chat.
	UserMessageRank(ctx context.Context, message *entity.Message) (int64, error)

	UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error
	DeleteByChat(ctx context.Context, chatId uuid.UUID) error
}
