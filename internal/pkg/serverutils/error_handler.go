package serverutils

import (
	"errors"

	"deonai-be/internal/pkg/logger"
	"deonai-be/internal/service"
	"deonai-be/pkg/auth"
	"deonai-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts errors returned by handlers into
// BaseResponse envelopes with the matching status code.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := classify(err)
		if code >= fiber.StatusInternalServerError {
			log.Error("http", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err.Error(),
			})
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func classify(err error) (int, string) {
	var fiberErr *fiber.Error
	var requestErr *RequestValidationError
	var validationErr *service.ValidationError
	var upstreamErr *llm.UpstreamError
	var networkErr *llm.NetworkError

	switch {
	case auth.IsAuthError(err):
		return fiber.StatusUnauthorized, err.Error()
	case errors.As(err, &requestErr):
		return fiber.StatusUnprocessableEntity, requestErr.Error()
	case errors.As(err, &validationErr):
		return fiber.StatusUnprocessableEntity, validationErr.Error()
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound, "Conversation not found"
	case errors.Is(err, llm.ErrInvalidCredentials):
		return fiber.StatusBadRequest, "Invalid upstream API key"
	case errors.Is(err, llm.ErrInsufficientCredits):
		return fiber.StatusPaymentRequired, "Insufficient upstream credits"
	case errors.Is(err, llm.ErrUpstreamThrottled):
		return fiber.StatusTooManyRequests, "Upstream rate limit reached"
	case errors.As(err, &upstreamErr), errors.As(err, &networkErr):
		return fiber.StatusBadGateway, "Upstream model provider unavailable"
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}
