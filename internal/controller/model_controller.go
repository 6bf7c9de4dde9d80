package controller

import (
	"deonai-be/internal/dto"
	"deonai-be/internal/pkg/serverutils"
	"deonai-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IModelController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
}

type modelController struct {
	service service.IModelService
}

func NewModelController(service service.IModelService) IModelController {
	return &modelController{service: service}
}

func (c *modelController) RegisterRoutes(r fiber.Router) {
	r.Post("/models", c.List)
}

// List returns the upstream models visible to the key in the body.
func (c *modelController) List(ctx *fiber.Ctx) error {
	var req dto.ListModelsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	models, err := c.service.ListModels(ctx.UserContext(), req.ApiKey)
	if err != nil {
		return err
	}

	return ctx.JSON(dto.ListModelsResponse{Models: models})
}
