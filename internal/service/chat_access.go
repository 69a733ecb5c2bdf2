package service

import (
	"context"
	"errors"
	"time"

	"aura-chat-be/internal/repository/memory"
	"aura-chat-be/internal/repository/specification"
	"aura-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// ErrChatNotFound covers both a missing chat and one owned by someone else.
var ErrChatNotFound = errors.New("chat not found")

type chatAuthorizer struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *memory.ChatAccessCache
	timeout    time.Duration
}

func newChatAuthorizer(uowFactory unitofwork.RepositoryFactory, cache *memory.ChatAccessCache, timeout time.Duration) *chatAuthorizer {
	return &chatAuthorizer{uowFactory: uowFactory, cache: cache, timeout: timeout}
}

func (a *chatAuthorizer) Authorize(ctx context.Context, userId, chatId uuid.UUID) (memory.ChatAccess, error) {
	if access, ok := a.cache.Lookup(chatId); ok {
		if access.OwnerId != userId {
			return memory.ChatAccess{}, ErrChatNotFound
		}
		return access, nil
	}

	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	chat, err := a.uowFactory.NewUnitOfWork(ctx).ChatRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return memory.ChatAccess{}, err
	}
	if chat == nil || chat.UserId != userId {
		return memory.ChatAccess{}, ErrChatNotFound
	}

	access := memory.ChatAccess{OwnerId: chat.UserId, IsTemporary: chat.IsTemporary}
	a.cache.Remember(chatId, access)
	return access, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
