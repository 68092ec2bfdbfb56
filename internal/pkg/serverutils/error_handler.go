package serverutils

import (
	"errors"

	"survey-assistant-be/pkg/memory"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns handler errors into the JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return writeError(ctx, err)
	}
}

func writeError(ctx *fiber.Ctx, err error) error {
	var validationErr *ValidationError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &validationErr):
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse("Validation failed", validationErr.Fields))
	case memory.IsInvalidInput(err):
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(err.Error(), nil))
	case errors.Is(err, memory.ErrSessionNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse(err.Error(), nil))
	case errors.As(err, &fiberErr):
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message, nil))
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("Internal server error", nil))
	}
}
