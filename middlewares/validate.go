package middlewares

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// BindAndValidate decodes the request body into dst and runs struct tag
// validation. Body parse failures surface as 400; validation failures return
// validator.ValidationErrors for the global error handler to translate.
func BindAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return validate.Struct(dst)
}

// ValidateStruct runs the shared validator against a DTO built outside of
// body binding (multipart forms, query-assembled structs).
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}
