package handlers

import (
	"github.com/gofiber/fiber/v2"

	mw "github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/accounts"
)

type UserHandler struct {
	Accounts *accounts.Accounts
}

func (h *UserHandler) Routes(r fiber.Router, auth ...fiber.Handler) {
	r.Get("/users", chain(auth, mw.RequireRoles(models.RoleAdmin), h.List)...)
	r.Get("/users/:id", chain(auth, mw.RequireRoles(), h.Get)...)
	r.Patch("/users/:id", chain(auth, mw.RequireRoles(), h.Update)...)
	r.Delete("/users/:id", chain(auth, mw.RequireRoles(), h.Delete)...)
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	users, err := h.Accounts.ListUsers(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, users)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Accounts.GetUser(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return ok(c, u)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req accounts.ProfileInput
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Accounts.UpdateProfile(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return ok(c, u)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Accounts.Deactivate(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "user deactivated",
	})
}
