package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"aura-chat-be/internal/constant"
	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/entity"
	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/internal/pkg/serverutils"
	"aura-chat-be/internal/repository/memory"
	"aura-chat-be/internal/repository/specification"
	"aura-chat-be/internal/repository/unitofwork"
	"aura-chat-be/pkg/events"
	"aura-chat-be/pkg/vector"

	"github.com/google/uuid"
)

type IChatService interface {
	CreateChat(ctx context.Context, userId uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatResponse, error)
	GetChats(ctx context.Context, userId uuid.UUID) ([]*dto.ChatResponse, error)
	GetMessages(ctx context.Context, userId, chatId uuid.UUID) ([]*dto.MessageResponse, error)
	DeleteChat(ctx context.Context, userId, chatId uuid.UUID) error
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	index          vector.Index
	access         *chatAuthorizer
	cache          *memory.ChatAccessCache
	eventPublisher events.Publisher
	vectorTimeout  time.Duration
	logger         logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	index vector.Index,
	cache *memory.ChatAccessCache,
	eventPublisher events.Publisher,
	storeTimeout, vectorTimeout time.Duration,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		index:          index,
		access:         newChatAuthorizer(uowFactory, cache, storeTimeout),
		cache:          cache,
		eventPublisher: eventPublisher,
		vectorTimeout:  vectorTimeout,
		logger:         log,
	}
}

func (s *chatService) CreateChat(ctx context.Context, userId uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatResponse, error) {
	title := strings.TrimSpace(req.Title)
	temporary := title == ""
	if temporary {
		title = constant.ChatDefaultTitle
	}

	now := time.Now()
	chat := &entity.Chat{
		Id:             uuid.New(),
		UserId:         userId,
		Title:          title,
		IsTemporary:    temporary,
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.uowFactory.NewUnitOfWork(ctx).ChatRepository().Create(ctx, chat); err != nil {
		return nil, serverutils.NewInternalError("failed to create chat", err)
	}
	s.cache.Remember(chat.Id, memory.ChatAccess{OwnerId: userId, IsTemporary: temporary})

	publish(ctx, s.eventPublisher, s.logger, events.New(events.TypeChatCreated, map[string]interface{}{
		"chat_id": chat.Id.String(),
		"user_id": userId.String(),
	}))
	return toChatResponse(chat), nil
}

func (s *chatService) GetChats(ctx context.Context, userId uuid.UUID) ([]*dto.ChatResponse, error) {
	chats, err := s.uowFactory.NewUnitOfWork(ctx).ChatRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.RecentActivity{},
	)
	if err != nil {
		return nil, serverutils.NewInternalError("failed to fetch chats", err)
	}

	res := make([]*dto.ChatResponse, 0, len(chats))
	for _, c := range chats {
		res = append(res, toChatResponse(c))
	}
	return res, nil
}

func (s *chatService) GetMessages(ctx context.Context, userId, chatId uuid.UUID) ([]*dto.MessageResponse, error) {
	if _, err := s.access.Authorize(ctx, userId, chatId); err != nil {
		return nil, chatAccessError(err)
	}

	messages, err := s.uowFactory.NewUnitOfWork(ctx).MessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.Chronological{},
	)
	if err != nil {
		return nil, serverutils.NewInternalError("failed to fetch messages", err)
	}

	res := make([]*dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		res = append(res, toMessageResponse(m))
	}
	return res, nil
}

// DeleteChat removes the chat and its messages in one transaction, then its
// memory entries. A vector failure is logged; the chat is already gone.
func (s *chatService) DeleteChat(ctx context.Context, userId, chatId uuid.UUID) error {
	if _, err := s.access.Authorize(ctx, userId, chatId); err != nil {
		return chatAccessError(err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return serverutils.NewInternalError("failed to delete chat", err)
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().DeleteByChat(ctx, chatId); err != nil {
		return serverutils.NewInternalError("failed to delete chat", err)
	}
	if err := uow.ChatRepository().Delete(ctx, chatId); err != nil {
		return serverutils.NewInternalError("failed to delete chat", err)
	}
	if err := uow.Commit(); err != nil {
		return serverutils.NewInternalError("failed to delete chat", err)
	}
	s.cache.Evict(chatId)

	vctx, cancel := withTimeout(ctx, s.vectorTimeout)
	defer cancel()
	if err := s.index.DeleteByChat(vctx, chatId); err != nil {
		s.logger.Error("ChatService", "Failed to delete chat memory", map[string]interface{}{
			"chat_id": chatId,
			"stage":   "memory_delete",
			"error":   err,
		})
	}

	publish(ctx, s.eventPublisher, s.logger, events.New(events.TypeChatDeleted, map[string]interface{}{
		"chat_id": chatId.String(),
		"user_id": userId.String(),
	}))
	return nil
}

// ChatDeletedHandler evicts the access cache when another instance deletes a chat.
func ChatDeletedHandler(cache *memory.ChatAccessCache) func(ctx context.Context, evt events.Event) error {
	return func(ctx context.Context, evt events.Event) error {
		chatId, err := uuid.Parse(events.StringField(evt, "chat_id"))
		if err != nil {
			// Nothing to evict and nothing a retry would fix.
			return nil
		}
		cache.Evict(chatId)
		return nil
	}
}

func chatAccessError(err error) error {
	if errors.Is(err, ErrChatNotFound) {
		return serverutils.NewNotFoundError(constant.ChatNotFoundMessage)
	}
	return serverutils.NewInternalError("failed to load chat", err)
}

func toChatResponse(c *entity.Chat) *dto.ChatResponse {
	return &dto.ChatResponse{
		Id:             c.Id,
		Title:          c.Title,
		IsTemporary:    c.IsTemporary,
		LastActivityAt: c.LastActivityAt,
		UserId:         c.UserId,
	}
}

func toMessageResponse(m *entity.Message) *dto.MessageResponse {
	return &dto.MessageResponse{
		Id:        m.Id,
		ChatId:    m.ChatId,
		UserId:    m.UserId,
		Role:      string(m.Role),
		Content:   m.Content,
		Image:     m.Image,
		Prompt:    m.Prompt,
		CreatedAt: m.CreatedAt,
	}
}
