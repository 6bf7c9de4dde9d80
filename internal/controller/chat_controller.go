package controller

import (
	"bufio"
	"context"
	"encoding/json"

	"deonai-be/internal/dto"
	"deonai-be/internal/pkg/serverutils"
	"deonai-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, protected fiber.Handler)
	Chat(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router, protected fiber.Handler) {
	r.Post("/chat", protected, c.Chat)
}

// Chat answers with a server-sent event stream. Everything that can fail
// with an HTTP status happens before the stream writer is installed.
func (c *chatController) Chat(ctx *fiber.Ctx) error {
	caller, err := serverutils.Caller(ctx)
	if err != nil {
		return err
	}

	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	turn, err := c.service.Prepare(ctx.UserContext(), caller, &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	// the fiber ctx is recycled once this handler returns
	streamCtx := context.WithoutCancel(ctx.UserContext())
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		c.service.Stream(streamCtx, turn, func(event dto.ChatEvent) error {
			return writeEvent(w, event)
		})
	})
	return nil
}

// writeEvent frames one event as "data: <json>\n\n" and flushes it. A flush
// error means the connection is gone.
func writeEvent(w *bufio.Writer, event dto.ChatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := w.WriteString("data: "); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
