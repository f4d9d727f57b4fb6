package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

func getAuth(c *fiber.Ctx) (models.Actor, error) {
	return middleware.CurrentActor(c)
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Invalid(name, name+" must be a valid id")
	}
	return id, nil
}

func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Invalid("body", "invalid request body")
	}
	return nil
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func created(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// chain returns a fresh slice so routes never share a backing array.
func chain(pre []fiber.Handler, hs ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(pre)+len(hs))
	out = append(out, pre...)
	return append(out, hs...)
}
