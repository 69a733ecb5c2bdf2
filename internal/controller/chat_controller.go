package controller

import (
	"io"

	"aura-chat-be/internal/constant"
	"aura-chat-be/internal/dto"
	"aura-chat-be/internal/pkg/serverutils"
	"aura-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Create(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	GetMessages(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	UploadImage(ctx *fiber.Ctx) error
}

type chatController struct {
	chats       service.IChatService
	turns       service.ITurnService
	maxImageLen int64
}

func NewChatController(chats service.IChatService, turns service.ITurnService, maxImageLen int64) IChatController {
	return &chatController{chats: chats, turns: turns, maxImageLen: maxImageLen}
}

func (c *chatController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/chat")
	h.Use(auth)
	h.Post("", c.Create)
	h.Get("", c.GetAll)
	h.Get("/messages/:id", c.GetMessages)
	h.Delete("/messages/:id", c.Delete)
	h.Post("/:id/image", c.UploadImage)
}

func (c *chatController) Create(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateChatRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return serverutils.NewBadRequestError("invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chats.CreateChat(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"code":    fiber.StatusCreated,
		"message": constant.ChatCreatedMessage,
		"data":    res,
	})
}

func (c *chatController) GetAll(ctx *fiber.Ctx) error {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.chats.GetChats(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(constant.ChatsFetchedMessage, res))
}

func (c *chatController) GetMessages(ctx *fiber.Ctx) error {
	userId, chatId, err := chatParams(ctx)
	if err != nil {
		return err
	}

	res, err := c.chats.GetMessages(ctx.UserContext(), userId, chatId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(constant.MessagesFetchedMessage, res))
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	userId, chatId, err := chatParams(ctx)
	if err != nil {
		return err
	}

	if err := c.chats.DeleteChat(ctx.UserContext(), userId, chatId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(constant.ChatDeletedMessage, nil))
}

// UploadImage runs an image turn and answers once the image is hosted.
func (c *chatController) UploadImage(ctx *fiber.Ctx) error {
	userId, chatId, err := chatParams(ctx)
	if err != nil {
		return err
	}

	file, err := ctx.FormFile("image")
	if err != nil {
		return serverutils.NewBadRequestError("image is required")
	}
	if c.maxImageLen > 0 && file.Size > c.maxImageLen {
		return serverutils.NewBadRequestError("image is too large")
	}
	mode := ctx.FormValue("mode")
	if mode != "" && mode != constant.ChatModeNormal && mode != constant.ChatModeThinking {
		return serverutils.NewBadRequestError("mode must be normal or thinking")
	}

	f, err := file.Open()
	if err != nil {
		return serverutils.NewBadRequestError("image is unreadable")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return serverutils.NewBadRequestError("image is unreadable")
	}

	res, err := c.turns.ImageTurnSync(ctx.UserContext(), userId, chatId, ctx.FormValue("prompt"), mode, data)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(constant.ImageTurnMessage, res))
}

func chatParams(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.CurrentUserID(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	chatId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, serverutils.NewNotFoundError(constant.ChatNotFoundMessage)
	}
	return userId, chatId, nil
}
