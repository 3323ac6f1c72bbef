package middlewares

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"civicdesk-backend/apperrors"
)

// ErrorHandler centralizes error responses and keeps messages sanitized.
// Domain errors from the lifecycle service map onto stable status codes so
// the UI can branch on them.
func ErrorHandler(c *fiber.Ctx, err error) error {
	// 1) Fiber errors (use their status code + message)
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}

	// 2) Validation errors (422 + per-field info)
	if ve, ok := err.(validator.ValidationErrors); ok {
		out := make(map[string]string, len(ve))
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "validation failed",
			"errors":  out,
		})
	}

	// 3) Domain errors
	var (
		vErr  *apperrors.Validation
		rErr  *apperrors.Reference
		lErr  *apperrors.ResourceLimit
		nfErr *apperrors.NotFound
		scErr *apperrors.StateConflict
	)
	switch {
	case errors.As(err, &vErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": vErr.Error()})
	case errors.As(err, &rErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": rErr.Error()})
	case errors.As(err, &lErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": lErr.Error()})
	case errors.As(err, &nfErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": nfErr.Error()})
	case errors.As(err, &scErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": scErr.Error()})
	}

	// 4) Unknown errors (500)
	log.Printf("internal error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}
