package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/accounts"
)

type AuthHandler struct {
	Accounts     *accounts.Accounts
	Expires      int
	SecureCookie bool
}

func (h *AuthHandler) setToken(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})
}

func (h *AuthHandler) Routes(r fiber.Router, auth ...fiber.Handler) {
	g := r.Group("/auth")
	g.Post("/signup", h.Signup)
	g.Post("/login", h.Login)
	g.Post("/logout", h.Logout)

	// Reachable before a role is chosen.
	g.Get("/me", chain(auth, h.Me)...)
	g.Post("/role", chain(auth, h.SelectRole)...)
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req accounts.SignupInput
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := h.Accounts.Signup(c.UserContext(), req)
	if err != nil {
		return err
	}

	h.setToken(c, sess.Token)
	return created(c, "signed up", sess)
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := h.Accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setToken(c, sess.Token)
	return ok(c, sess)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "logged out",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	return ok(c, u)
}

type selectRoleReq struct {
	Role string `json:"role"`
}

func (h *AuthHandler) SelectRole(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req selectRoleReq
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := h.Accounts.SelectRole(c.UserContext(), actor.UserID, req.Role)
	if err != nil {
		return err
	}

	h.setToken(c, sess.Token)
	return ok(c, sess)
}
