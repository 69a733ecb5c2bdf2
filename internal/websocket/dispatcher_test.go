package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"aura-chat-be/internal/constant"
	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTurnRunner struct {
	mock.Mock
}

func (m *mockTurnRunner) TextTurn(ctx context.Context, userId uuid.UUID, req *dto.TextTurnRequest, emit service.Emitter) error {
	return m.Called(userId, req).Error(0)
}

func (m *mockTurnRunner) ImageTurn(ctx context.Context, userId uuid.UUID, req *dto.ImageTurnRequest, emit service.Emitter) error {
	return m.Called(userId, req).Error(0)
}

type recordingEmitter struct {
	events []string
	data   []interface{}
}

func (e *recordingEmitter) Emit(event string, data interface{}) {
	e.events = append(e.events, event)
	e.data = append(e.data, data)
}

func frame(t *testing.T, event string, data interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	require.NoError(t, err)
	return b
}

func TestDispatchRoutesTurns(t *testing.T) {
	user, chat := uuid.New(), uuid.New()

	tests := []struct {
		name  string
		frame []byte
		setup func(m *mockTurnRunner)
	}{
		{
			name:  "text turn",
			frame: frame(t, constant.EventAIMessage, map[string]interface{}{"chat": chat, "content": "hello", "mode": "thinking"}),
			setup: func(m *mockTurnRunner) {
				m.On("TextTurn", user, &dto.TextTurnRequest{ChatId: chat, Content: "hello", Mode: "thinking"}).Return(nil)
			},
		},
		{
			name:  "image turn",
			frame: frame(t, constant.EventAIImageMessage, map[string]interface{}{"chat": chat, "image": "data:image/png;base64,AAAA", "previewId": "p1"}),
			setup: func(m *mockTurnRunner) {
				m.On("ImageTurn", user, &dto.ImageTurnRequest{ChatId: chat, Image: "data:image/png;base64,AAAA", PreviewId: "p1"}).Return(nil)
			},
		},
		{
			name:  "unknown event is ignored",
			frame: frame(t, "typing", map[string]interface{}{"chat": chat}),
			setup: func(m *mockTurnRunner) {},
		},
		{
			name:  "malformed frame is ignored",
			frame: []byte("{not json"),
			setup: func(m *mockTurnRunner) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockTurnRunner{}
			tt.setup(runner)
			emit := &recordingEmitter{}

			newDispatcher(runner, user, logger.NewNopLogger()).dispatch(context.Background(), tt.frame, emit)

			runner.AssertExpectations(t)
			assert.Empty(t, emit.events)
		})
	}
}

func TestDispatchRejectsInvalidPayloads(t *testing.T) {
	user, chat := uuid.New(), uuid.New()

	tests := []struct {
		name        string
		frame       []byte
		wantPreview string
	}{
		{name: "missing content", frame: frame(t, constant.EventAIMessage, map[string]interface{}{"chat": chat})},
		{name: "unknown mode", frame: frame(t, constant.EventAIMessage, map[string]interface{}{"chat": chat, "content": "x", "mode": "turbo"})},
		{name: "missing image", frame: frame(t, constant.EventAIImageMessage, map[string]interface{}{"chat": chat, "previewId": "p9"}), wantPreview: "p9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockTurnRunner{}
			emit := &recordingEmitter{}

			newDispatcher(runner, user, logger.NewNopLogger()).dispatch(context.Background(), tt.frame, emit)

			runner.AssertNotCalled(t, "TextTurn", mock.Anything, mock.Anything)
			runner.AssertNotCalled(t, "ImageTurn", mock.Anything, mock.Anything)
			require.Equal(t, []string{constant.EventAIResponse}, emit.events)
			payload := emit.data[0].(dto.AIResponsePayload)
			assert.Equal(t, constant.ChatGenericErrorReply, payload.Content)
			assert.Equal(t, chat, payload.Chat)
			assert.Equal(t, tt.wantPreview, payload.PreviewId)
		})
	}
}

func TestRejectAnswersOnlyTurnEvents(t *testing.T) {
	d := newDispatcher(&mockTurnRunner{}, uuid.New(), logger.NewNopLogger())
	chat := uuid.New()

	emit := &recordingEmitter{}
	d.reject(frame(t, "typing", nil), emit)
	assert.Empty(t, emit.events)

	d.reject(frame(t, constant.EventAIMessage, map[string]interface{}{"chat": chat, "content": "x"}), emit)
	require.Len(t, emit.events, 1)
	assert.Equal(t, chat, emit.data[0].(dto.AIResponsePayload).Chat)
}
