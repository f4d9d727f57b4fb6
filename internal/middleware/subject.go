package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/utils"
)

type SubjectLoader interface {
	Subject(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// LoadSubject resolves the token's user, which must still exist and be
// active. Role checks use the stored role, not the one in the token.
func LoadSubject(loader SubjectLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*utils.Claims)
		if !ok || claims == nil {
			return apperr.Unauthenticated()
		}

		uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
		if err != nil {
			return apperr.Unauthenticated()
		}

		u, err := loader.Subject(c.UserContext(), uid)
		if err != nil {
			return err
		}

		c.Locals("userId", u.ID.String())
		c.Locals("role", string(u.Role))
		c.Locals("user", u)
		return c.Next()
	}
}

// CurrentUser returns the user stored by LoadSubject.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	u, ok := c.Locals("user").(*models.User)
	if !ok || u == nil {
		return nil, apperr.Unauthenticated()
	}
	return u, nil
}

func CurrentActor(c *fiber.Ctx) (models.Actor, error) {
	u, err := CurrentUser(c)
	if err != nil {
		return models.Actor{}, err
	}
	return u.Actor(), nil
}
