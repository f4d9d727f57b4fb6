package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/utils"
)

// TokenCookie carries the session token for browser clients.
const TokenCookie = "hg_token"

func tokenFrom(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if tok := c.Cookies(TokenCookie); tok != "" {
		return tok
	}
	// Browsers cannot set headers on a websocket handshake.
	if strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
		return c.Query("token")
	}
	return ""
}

// JWT verifies the bearer token (header, cookie or websocket query) and
// stores its claims in locals.
func JWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			return apperr.Unauthenticated()
		}

		claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return apperr.Unauthenticated()
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}
