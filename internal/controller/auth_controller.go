package controller

import (
	"time"

	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/pkg/serverutils"
	"aura-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
}

type authController struct {
	service    service.IAuthService
	cookieTTL  time.Duration
	secureOnly bool
}

func NewAuthController(service service.IAuthService, cookieTTL time.Duration, secureOnly bool) IAuthController {
	return &authController{service: service, cookieTTL: cookieTTL, secureOnly: secureOnly}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/register", c.Register)
	h.Post("/login", c.Login)
}

func (c *authController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewBadRequestError("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Register(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	c.setTokenCookie(ctx, res.Token)

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"code":    fiber.StatusCreated,
		"message": "user registered successfully",
		"data":    res,
	})
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewBadRequestError("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Login(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	c.setTokenCookie(ctx, res.Token)

	return ctx.JSON(serverutils.SuccessResponse("Login successful", res))
}

func (c *authController) setTokenCookie(ctx *fiber.Ctx, token string) {
	ctx.Cookie(&fiber.Cookie{
		Name:     serverutils.TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(c.cookieTTL),
		HTTPOnly: true,
		Secure:   c.secureOnly,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
