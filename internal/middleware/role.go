package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

// RequireRoles admits users whose role is one of allowed. With no
// arguments any assigned role is accepted. Users who have not picked a
// role yet are always refused.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		u, err := CurrentUser(c)
		if err != nil {
			return err
		}
		if u.Role == models.RoleUnset || u.Role == "" {
			return apperr.Forbidden()
		}
		if len(allowedSet) > 0 && !allowedSet[u.Role] {
			return apperr.Forbidden()
		}
		return c.Next()
	}
}
