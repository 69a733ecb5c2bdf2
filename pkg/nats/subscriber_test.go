package nats

import (
	"testing"
	"time"

	"aura-chat-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("headers win", func(t *testing.T) {
		h := nats.Header{}
		h.Set(typeHeader, events.TypeChatDeleted)
		h.Set(timeHeader, at.Format(time.RFC3339Nano))

		e, err := decode(Subject("ignored"), h, []byte(`{"chat_id":"c1"}`))
		require.NoError(t, err)
		assert.Equal(t, events.TypeChatDeleted, e.EventType())
		assert.True(t, at.Equal(e.Timestamp()))
		assert.Equal(t, "c1", events.StringField(e, "chat_id"))
	})

	t.Run("subject fallback", func(t *testing.T) {
		e, err := decode(Subject(events.TypeChatCreated), nats.Header{}, []byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, events.TypeChatCreated, e.EventType())
		assert.False(t, e.Timestamp().IsZero())
	})

	t.Run("bad payload", func(t *testing.T) {
		_, err := decode(Subject("X"), nats.Header{}, []byte(`not json`))
		assert.Error(t, err)
	})
}
