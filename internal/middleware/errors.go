package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
)

// ErrorHandler renders every error as {success:false, message, ...}.
// Internal details are only exposed outside production.
func ErrorHandler(production bool, log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		body := fiber.Map{"success": false}
		status := fiber.StatusInternalServerError

		var fe *fiber.Error
		if e, ok := apperr.As(err); ok {
			status = e.Kind.HTTPStatus()
			body["message"] = e.Message
			if e.Code != "" {
				body["code"] = e.Code
			}
			if len(e.Fields) > 0 {
				body["errors"] = e.Fields
			}
			if e.Kind == apperr.KindInternal || e.Kind == apperr.KindProvider {
				log.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
				if !production && e.Err != nil {
					body["stack"] = e.Err.Error()
				}
			}
		} else if errors.As(err, &fe) {
			status = fe.Code
			body["message"] = fe.Message
		} else {
			log.Error("unhandled error", "method", c.Method(), "path", c.Path(), "err", err)
			body["message"] = "internal server error"
			if !production {
				body["stack"] = err.Error()
			}
		}

		return c.Status(status).JSON(body)
	}
}
