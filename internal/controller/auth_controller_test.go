package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	args := m.Called(req)
	res, _ := args.Get(0).(*dto.AuthResponse)
	return res, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	args := m.Called(req)
	res, _ := args.Get(0).(*dto.AuthResponse)
	return res, args.Error(1)
}

func newAuthAPI(svc *mockAuthService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(logger.NewNopLogger()))
	NewAuthController(svc, time.Hour, false).RegisterRoutes(app.Group("/api"))
	return app
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func tokenCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == serverutils.TokenCookieName {
			return c
		}
	}
	return nil
}

func TestAuthController(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		setup      func(m *mockAuthService)
		wantStatus int
		wantCookie bool
	}{
		{
			name: "register sets the token cookie",
			path: "/api/auth/register",
			body: `{"email":"a@b.io","password":"secret1","fullName":{"firstName":"Ada"}}`,
			setup: func(m *mockAuthService) {
				m.On("Register", mock.AnythingOfType("*dto.RegisterRequest")).Return(&dto.AuthResponse{Token: "tok"}, nil)
			},
			wantStatus: http.StatusCreated,
			wantCookie: true,
		},
		{
			name:       "register validates the body",
			path:       "/api/auth/register",
			body:       `{"email":"not-an-email","password":"x"}`,
			setup:      func(m *mockAuthService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			path:       "/api/auth/login",
			body:       `{`,
			setup:      func(m *mockAuthService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "login sets the token cookie",
			path: "/api/auth/login",
			body: `{"email":"a@b.io","password":"secret1"}`,
			setup: func(m *mockAuthService) {
				m.On("Login", &dto.LoginRequest{Email: "a@b.io", Password: "secret1"}).Return(&dto.AuthResponse{Token: "tok"}, nil)
			},
			wantStatus: http.StatusOK,
			wantCookie: true,
		},
		{
			name: "login failure",
			path: "/api/auth/login",
			body: `{"email":"a@b.io","password":"wrong"}`,
			setup: func(m *mockAuthService) {
				m.On("Login", mock.Anything).Return(nil, serverutils.NewConflictError("invalid credentials"))
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{}
			tt.setup(svc)

			resp, err := newAuthAPI(svc).Test(jsonRequest(tt.path, tt.body))
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			cookie := tokenCookie(resp)
			if tt.wantCookie {
				require.NotNil(t, cookie)
				assert.Equal(t, "tok", cookie.Value)
				assert.True(t, cookie.HttpOnly)
			} else {
				assert.Nil(t, cookie)
			}
			svc.AssertExpectations(t)
		})
	}
}
