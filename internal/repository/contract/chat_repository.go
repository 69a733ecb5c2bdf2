package contract

import (
	"context"
	"time"

	"aura-chat-be/internal/entity"
	"aura-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chat, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error)

	// UpdateTitleIfTemporary sets the title and clears the temporary flag only
	// while the chat is still temporary. It reports whether this call won.
	UpdateTitleIfTemporary(ctx context.Context, id uuid.UUID, title string) (bool, error)

	// TouchActivity moves last_activity_at forward; older timestamps are ignored.
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error
}
