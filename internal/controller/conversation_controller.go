package controller

import (
	"strings"

	"deonai-be/internal/dto"
	"deonai-be/internal/pkg/serverutils"
	"deonai-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router, protected fiber.Handler)
	GetAll(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Messages(ctx *fiber.Ctx) error
	Rename(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type conversationController struct {
	service service.IConversationService
	models  service.IModelService
}

func NewConversationController(service service.IConversationService, models service.IModelService) IConversationController {
	return &conversationController{service: service, models: models}
}

func (c *conversationController) RegisterRoutes(r fiber.Router, protected fiber.Handler) {
	h := r.Group("/conversations", protected)
	h.Get("", c.GetAll)
	h.Post("", c.Create)
	h.Get(":id/messages", c.Messages)
	h.Patch(":id", c.Rename)
	h.Delete(":id", c.Delete)
}

// conversationId parses the :id path parameter. A malformed id cannot name
// an existing conversation, so it is reported as not found.
func conversationId(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, service.ErrNotFound
	}
	return id, nil
}

func (c *conversationController) GetAll(ctx *fiber.Ctx) error {
	caller, err := serverutils.Caller(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListConversations(ctx.UserContext(), caller)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.NewConversationListResponse(res))
}

func (c *conversationController) Create(ctx *fiber.Ctx) error {
	caller, err := serverutils.Caller(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	title := ""
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if err := c.models.ValidateModel(req.ModelId); err != nil {
		return err
	}

	res, err := c.service.CreateConversation(ctx.UserContext(), caller, title, req.ModelId)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.NewConversationResponse(res))
}

func (c *conversationController) Messages(ctx *fiber.Ctx) error {
	caller, err := serverutils.Caller(ctx)
	if err != nil {
		return err
	}
	id, err := conversationId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListMessages(ctx.UserContext(), caller, id)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.NewMessageListResponse(res))
}

func (c *conversationController) Rename(ctx *fiber.Ctx) error {
	caller, err := serverutils.Caller(ctx)
	if err != nil {
		return err
	}
	id, err := conversationId(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateConversationTitle(ctx.UserContext(), caller, id, req.Title)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.NewConversationResponse(res))
}

func (c *conversationController) Delete(ctx *fiber.Ctx) error {
	caller, err := serverutils.Caller(ctx)
	if err != nil {
		return err
	}
	id, err := conversationId(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteConversation(ctx.UserContext(), caller, id); err != nil {
		return err
	}

	return ctx.JSON(dto.DeleteConversationResponse{Deleted: true})
}
