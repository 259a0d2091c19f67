package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/dshills/personarag/pkg/types"
)

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, types.ErrEmptyQuery),
		errors.Is(err, types.ErrInvalidNamespace),
		errors.Is(err, types.ErrInvalidFilter),
		errors.Is(err, types.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, types.ErrEmbeddingProvider):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every handler error as {"error": "..."}
func errorHandler(c fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
