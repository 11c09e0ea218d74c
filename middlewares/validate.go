package middlewares

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"workshop-backend/utils"
)

var validate = validator.New()

// BindAndValidate parses the request body into dst, trims its strings and validates it.
// Returns a 400 fiber.Error for parse errors and a validator.ValidationErrors for validation issues.
func BindAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	utils.NormalizeDTO(dst)
	return validate.Struct(dst)
}
