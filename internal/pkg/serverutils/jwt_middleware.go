// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const TokenCookieName = "token"

var (
	ErrMissingToken = errors.New("no token")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenVerifier issues and checks the HS256 tokens shared by REST and the socket gateway.
type TokenVerifier struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenVerifier(secret string, ttl time.Duration) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), ttl: ttl}
}

func (v *TokenVerifier) Issue(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"iat":     time.Now().Unix(),
	}
	if v.ttl > 0 {
		claims["exp"] = time.Now().Add(v.ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify returns the user id carried by a valid token.
func (v *TokenVerifier) Verify(tokenStr string) (uuid.UUID, error) {
	if tokenStr == "" {
		return uuid.Nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

// TokenFromRequest looks at the auth cookie, then ?token=, then the Bearer header.
func TokenFromRequest(ctx *fiber.Ctx) string {
	if tokenStr := ctx.Cookies(TokenCookieName); tokenStr != "" {
		return tokenStr
	}
	if tokenStr := ctx.Query("token"); tokenStr != "" {
		return tokenStr
	}
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}

// NewJwtMiddleware rejects requests without a valid token and stores the
// user id string under ctx.Locals("user_id").
func NewJwtMiddleware(v *TokenVerifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userID, err := v.Verify(TokenFromRequest(ctx))
		if errors.Is(err, ErrMissingToken) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals("user_id", userID.String())
		return ctx.Next()
	}
}

// CurrentUserID reads the id stored by NewJwtMiddleware.
func CurrentUserID(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, NewUnauthorizedError("Unauthorized")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, NewUnauthorizedError("Invalid user ID")
	}
	return userID, nil
}
