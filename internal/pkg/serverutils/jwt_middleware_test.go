package serverutils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aura-chat-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedApp(v *TokenVerifier) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(logger.NewNopLogger()))
	app.Get("/me", NewJwtMiddleware(v), func(ctx *fiber.Ctx) error {
		userID, err := CurrentUserID(ctx)
		if err != nil {
			return err
		}
		return ctx.SendString(userID.String())
	})
	return app
}

func TestJwtMiddleware(t *testing.T) {
	v := NewTokenVerifier("secret", time.Hour)
	userID := uuid.New()
	valid, err := v.Issue(userID)
	require.NoError(t, err)

	other := NewTokenVerifier("other-secret", time.Hour)
	forged, err := other.Issue(userID)
	require.NoError(t, err)

	tests := []struct {
		name     string
		decorate func(req *http.Request)
		wantCode int
	}{
		{
			name:     "no token",
			decorate: func(req *http.Request) {},
			wantCode: fiber.StatusUnauthorized,
		},
		{
			name: "cookie token",
			decorate: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: valid})
			},
			wantCode: fiber.StatusOK,
		},
		{
			name: "bearer token",
			decorate: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+valid)
			},
			wantCode: fiber.StatusOK,
		},
		{
			name: "query token",
			decorate: func(req *http.Request) {
				req.URL.RawQuery = "token=" + valid
				req.RequestURI = req.URL.RequestURI()
			},
			wantCode: fiber.StatusOK,
		},
		{
			name: "wrong signature",
			decorate: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+forged)
			},
			wantCode: fiber.StatusUnauthorized,
		},
	}

	app := newProtectedApp(v)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.decorate(req)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}

func TestVerifyRejectsNonHMAC(t *testing.T) {
	v := NewTokenVerifier("secret", time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": uuid.NewString()})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := NewTokenVerifier("secret", time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Title string `validate:"required,max=5"`
	}

	assert.NoError(t, ValidateRequest(req{Title: "ok"}))

	err := ValidateRequest(req{Title: "too long"})
	require.Error(t, err)
	code, msg := StatusOf(err)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Contains(t, msg, "Title failed on max=5")
}
