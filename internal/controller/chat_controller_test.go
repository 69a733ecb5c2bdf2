package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aura-chat-be/internal/constant"
	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/internal/pkg/serverutils"
	"aura-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChatService struct {
	mock.Mock
}

func (m *mockChatService) CreateChat(ctx context.Context, userId uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatResponse, error) {
	args := m.Called(userId, req)
	res, _ := args.Get(0).(*dto.ChatResponse)
	return res, args.Error(1)
}

func (m *mockChatService) GetChats(ctx context.Context, userId uuid.UUID) ([]*dto.ChatResponse, error) {
	args := m.Called(userId)
	res, _ := args.Get(0).([]*dto.ChatResponse)
	return res, args.Error(1)
}

func (m *mockChatService) GetMessages(ctx context.Context, userId, chatId uuid.UUID) ([]*dto.MessageResponse, error) {
	args := m.Called(userId, chatId)
	res, _ := args.Get(0).([]*dto.MessageResponse)
	return res, args.Error(1)
}

func (m *mockChatService) DeleteChat(ctx context.Context, userId, chatId uuid.UUID) error {
	return m.Called(userId, chatId).Error(0)
}

type mockTurnService struct {
	mock.Mock
}

func (m *mockTurnService) TextTurn(ctx context.Context, userId uuid.UUID, req *dto.TextTurnRequest, emit service.Emitter) error {
	return m.Called(userId, req).Error(0)
}

func (m *mockTurnService) ImageTurn(ctx context.Context, userId uuid.UUID, req *dto.ImageTurnRequest, emit service.Emitter) error {
	return m.Called(userId, req).Error(0)
}

func (m *mockTurnService) ImageTurnSync(ctx context.Context, userId, chatId uuid.UUID, prompt, mode string, data []byte) (*dto.ImageTurnResponse, error) {
	args := m.Called(userId, chatId, prompt, mode, data)
	res, _ := args.Get(0).(*dto.ImageTurnResponse)
	return res, args.Error(1)
}

func (m *mockTurnService) Wait() {}

type chatAPI struct {
	app   *fiber.App
	chats *mockChatService
	turns *mockTurnService
	user  uuid.UUID
	token string
}

func newChatAPI(t *testing.T) *chatAPI {
	t.Helper()
	tokens := serverutils.NewTokenVerifier("controller-secret", time.Hour)
	user := uuid.New()
	token, err := tokens.Issue(user)
	require.NoError(t, err)

	api := &chatAPI{chats: &mockChatService{}, turns: &mockTurnService{}, user: user, token: token}
	api.app = fiber.New()
	api.app.Use(serverutils.ErrorHandlerMiddleware(logger.NewNopLogger()))
	NewChatController(api.chats, api.turns, 1<<20).RegisterRoutes(api.app.Group("/api"), serverutils.NewJwtMiddleware(tokens))
	return api
}

func (a *chatAPI) do(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	if a.token != "" {
		req.AddCookie(&http.Cookie{Name: serverutils.TokenCookieName, Value: a.token})
	}
	resp, err := a.app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	var env map[string]interface{}
	_ = json.Unmarshal(body, &env)
	return resp.StatusCode, env
}

func TestCreateChatReturnsCreated(t *testing.T) {
	api := newChatAPI(t)
	chatId := uuid.New()
	api.chats.On("CreateChat", api.user, &dto.CreateChatRequest{}).
		Return(&dto.ChatResponse{Id: chatId, Title: constant.ChatDefaultTitle, IsTemporary: true, UserId: api.user}, nil)

	code, env := api.do(t, httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, constant.ChatCreatedMessage, env["message"])
	data := env["data"].(map[string]interface{})
	assert.Equal(t, chatId.String(), data["_id"])
	assert.Equal(t, true, data["isTemporary"])
	api.chats.AssertExpectations(t)
}

func TestChatRoutesRequireToken(t *testing.T) {
	api := newChatAPI(t)
	api.token = ""

	code, env := api.do(t, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Missing token", env["message"])
	api.chats.AssertNotCalled(t, "GetChats", mock.Anything)
}

func TestGetMessagesErrors(t *testing.T) {
	api := newChatAPI(t)
	foreign := uuid.New()
	api.chats.On("GetMessages", api.user, foreign).Return(nil, serverutils.NewNotFoundError(constant.ChatNotFoundMessage))

	tests := []struct {
		name string
		path string
	}{
		{name: "malformed id", path: "/api/chat/messages/not-a-uuid"},
		{name: "foreign chat", path: "/api/chat/messages/" + foreign.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := api.do(t, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusNotFound, code)
			assert.Equal(t, constant.ChatNotFoundMessage, env["message"])
		})
	}
}

func TestDeleteChat(t *testing.T) {
	api := newChatAPI(t)
	chatId := uuid.New()
	api.chats.On("DeleteChat", api.user, chatId).Return(nil)

	code, env := api.do(t, httptest.NewRequest(http.MethodDelete, "/api/chat/messages/"+chatId.String(), nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, constant.ChatDeletedMessage, env["message"])
	api.chats.AssertExpectations(t)
}

func multipartRequest(t *testing.T, path string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "photo.heic")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadImage(t *testing.T) {
	chatId := uuid.New()
	path := "/api/chat/" + chatId.String() + "/image"
	image := []byte{0xff, 0xd8, 0xff, 0xe0}

	t.Run("runs the turn synchronously", func(t *testing.T) {
		api := newChatAPI(t)
		api.turns.On("ImageTurnSync", api.user, chatId, "what is it", "thinking", image).
			Return(&dto.ImageTurnResponse{Chat: chatId, Content: "a cat", ImageData: "https://img/cat.jpg", MimeType: "image/jpeg"}, nil)

		code, env := api.do(t, multipartRequest(t, path, map[string]string{"prompt": "what is it", "mode": "thinking"}, image))

		assert.Equal(t, http.StatusOK, code)
		data := env["data"].(map[string]interface{})
		assert.Equal(t, "https://img/cat.jpg", data["imageData"])
		assert.Equal(t, "a cat", data["content"])
		api.turns.AssertExpectations(t)
	})

	t.Run("missing image", func(t *testing.T) {
		api := newChatAPI(t)
		code, _ := api.do(t, multipartRequest(t, path, map[string]string{"prompt": "x"}, nil))
		assert.Equal(t, http.StatusBadRequest, code)
		api.turns.AssertNotCalled(t, "ImageTurnSync", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown mode", func(t *testing.T) {
		api := newChatAPI(t)
		code, _ := api.do(t, multipartRequest(t, path, map[string]string{"mode": "turbo"}, image))
		assert.Equal(t, http.StatusBadRequest, code)
	})
}
