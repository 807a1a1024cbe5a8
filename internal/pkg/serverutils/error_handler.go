package serverutils

import (
	"errors"

	"ai-codereview-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns handler errors into the standard JSON envelope
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		res := ErrorResponse(code, err.Error())
		res.Hint = apperror.Hint(err)

		var ve *ValidationError
		if errors.As(err, &ve) {
			res.Errors = ve.Fields
		}
		return ctx.Status(code).JSON(res)
	}
}

func StatusFor(err error) int {
	var ve *ValidationError
	var fe *fiber.Error
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	case errors.Is(err, apperror.ErrMissingCredential):
		return fiber.StatusPreconditionFailed
	case errors.Is(err, apperror.ErrNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &fe):
		return fe.Code
	default:
		return fiber.StatusInternalServerError
	}
}
