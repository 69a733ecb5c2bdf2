package implementation

import (
	"context"

	"aura-chat-be/internal/entity"
	"aura-chat-be/internal/mapper"
	"aura-chat-be/internal/model"
	"aura-chat-be/internal/repository/contract"
	"aura-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewMessageRepository(db *gorm.DB) contract.MessageRepository {
	return &MessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *MessageRepositoryImpl) Create(ctx context.Context, message *entity.Message) error {
	m := r.mapper.MessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *MessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	var models []*model.Message
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.MessagesToEntities(models), nil
}

func (r *MessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Message{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MessageRepositoryImpl) FindRecentByChat(ctx context.Context, chatId uuid.UUID, limit int) ([]*entity.Message, error) {
	var models []*model.Message
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByChatID{ChatID: chatId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.OrderBy{Field: "id", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	// newest-N window, handed back oldest first
	for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
		models[i], models[j] = models[j], models[i]
	}
	return r.mapper.MessagesToEntities(models), nil
}

func (r *MessageRepositoryImpl) UserMessageRank(ctx context.Context, message *entity.Message) (int64, error) {
	return r.Count(ctx,
		specification.ByChatID{ChatID: message.ChatId},
		specification.ByRole{Role: entity.MessageRoleUser},
		specification.UpToMessage{CreatedAt: message.CreatedAt, ID: message.Id},
	)
}

func (r *MessageRepositoryImpl) UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) error {
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Update("image", imageURL).Error
}

func (r *MessageRepositoryImpl) DeleteByChat(ctx context.Context, chatId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatId).Delete(&model.Message{}).Error
}
