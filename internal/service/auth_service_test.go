package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/internal/pkg/serverutils"
	"aura-chat-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture() (*store, *serverutils.TokenVerifier, *recordingPublisher, IAuthService) {
	s := newStore()
	tokens := serverutils.NewTokenVerifier("test-secret", time.Hour)
	pub := &recordingPublisher{}
	return s, tokens, pub, NewAuthService(fakeFactory{s: s}, tokens, pub, logger.NewNopLogger())
}

func registerRequest(email string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Email:    email,
		Password: "hunter22",
		FullName: dto.FullName{FirstName: " Ada ", LastName: "Lovelace"},
	}
}

func TestRegisterIssuesTokenForNewUser(t *testing.T) {
	s, tokens, pub, svc := newAuthFixture()

	res, err := svc.Register(context.Background(), registerRequest(" Ada@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, "Ada", res.User.FullName.FirstName)

	userId, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.Id, userId)

	stored := s.users[userId]
	require.NotNil(t, stored)
	assert.NotEqual(t, "hunter22", stored.PasswordHash)
	assert.Equal(t, []string{events.TypeUserRegistered}, pub.types())
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	_, _, _, svc := newAuthFixture()
	_, err := svc.Register(context.Background(), registerRequest("ada@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerRequest("ADA@example.com"))
	code, msg := serverutils.StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, authUserExistsMessage, msg)
}

func TestLogin(t *testing.T) {
	_, tokens, _, svc := newAuthFixture()
	registered, err := svc.Register(context.Background(), registerRequest("ada@example.com"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantCode int
	}{
		{name: "valid credentials", email: "ada@example.com", password: "hunter22"},
		{name: "email is case insensitive", email: "Ada@Example.com", password: "hunter22"},
		{name: "wrong password", email: "ada@example.com", password: "hunter23", wantCode: http.StatusConflict},
		{name: "unknown email", email: "bob@example.com", password: "hunter22", wantCode: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(context.Background(), &dto.LoginRequest{Email: tt.email, Password: tt.password})
			if tt.wantCode != 0 {
				code, msg := serverutils.StatusOf(err)
				assert.Equal(t, tt.wantCode, code)
				assert.Equal(t, authInvalidLoginMessage, msg)
				return
			}
			require.NoError(t, err)
			userId, err := tokens.Verify(res.Token)
			require.NoError(t, err)
			assert.Equal(t, registered.User.Id, userId)
		})
	}
}
