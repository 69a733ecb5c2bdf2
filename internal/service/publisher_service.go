package service

import (
	"context"
	"encoding/json"

	"aura-chat-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (p *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.publisher.Publish(p.topicName, msg)
}

// IMemoryIndexer queues a message for embedding into the vector memory.
type IMemoryIndexer interface {
	Enqueue(ctx context.Context, job dto.PublishMemoryIndexMessage) error
}

type memoryIndexer struct {
	publisher IPublisherService
}

func NewMemoryIndexer(publisher IPublisherService) IMemoryIndexer {
	return &memoryIndexer{publisher: publisher}
}

func (m *memoryIndexer) Enqueue(ctx context.Context, job dto.PublishMemoryIndexMessage) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return m.publisher.Publish(ctx, payload)
}
