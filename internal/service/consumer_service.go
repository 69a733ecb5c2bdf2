package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/pkg/embedding"
	"aura-chat-be/pkg/vector"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber        message.Subscriber
	topicName         string
	embeddingProvider embedding.EmbeddingProvider
	index             vector.Index
	embedTimeout      time.Duration
	vectorTimeout     time.Duration
	logger            logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	embeddingProvider embedding.EmbeddingProvider,
	index vector.Index,
	embedTimeout, vectorTimeout time.Duration,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:        subscriber,
		topicName:         topicName,
		embeddingProvider: embeddingProvider,
		index:             index,
		embedTimeout:      embedTimeout,
		vectorTimeout:     vectorTimeout,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks. Memory is best-effort and a nack on the
// in-process channel would redeliver immediately.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var job dto.PublishMemoryIndexMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		cs.logger.Error("MemoryIndexer", "Failed to unmarshal job", map[string]interface{}{"error": err})
		return
	}
	fields := map[string]interface{}{
		"chat_id":    job.ChatId,
		"message_id": job.MessageId,
		"role":       job.Role,
	}
	if strings.TrimSpace(job.Text) == "" {
		return
	}

	vec := job.Vector
	if len(vec) == 0 {
		ectx, cancel := withTimeout(ctx, cs.embedTimeout)
		var err error
		vec, err = cs.embeddingProvider.Embed(ectx, job.Text)
		cancel()
		if err != nil {
			fields["stage"] = "embed"
			fields["error"] = err
			cs.logger.Warn("MemoryIndexer", "Embedding failed, message not indexed", fields)
			return
		}
	}

	vctx, cancel := withTimeout(ctx, cs.vectorTimeout)
	defer cancel()
	err := cs.index.Upsert(vctx, vector.Entry{
		MessageID: job.MessageId,
		Vector:    vec,
		Metadata: vector.Metadata{
			ChatID: job.ChatId,
			UserID: job.UserId,
			Text:   job.Text,
			Role:   job.Role,
		},
	})
	if err != nil {
		fields["stage"] = "memory_upsert"
		fields["error"] = err
		cs.logger.Warn("MemoryIndexer", "Memory upsert failed", fields)
		return
	}
	cs.logger.Debug("MemoryIndexer", "Message indexed", fields)
}
