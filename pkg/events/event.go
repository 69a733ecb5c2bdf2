package events

import (
	"context"
	"time"
)

const (
	TypeChatCreated    = "CHAT_CREATED"
	TypeChatDeleted    = "CHAT_DELETED"
	TypeTurnCompleted  = "TURN_COMPLETED"
	TypeUserRegistered = "USER_REGISTERED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_DELETED").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

// Publisher sends events to the bus. A nil Publisher is valid wherever one is
// accepted and means events are dropped.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

// StringField reads a string value from an event payload.
func StringField(e Event, key string) string {
	if e == nil {
		return ""
	}
	v, _ := e.Payload()[key].(string)
	return v
}
