package handlers

import (
	"github.com/gofiber/fiber/v2"

	mw "github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/lifecycle"
)

type DashboardHandler struct {
	Lifecycle *lifecycle.Service
}

func (h *DashboardHandler) Routes(r fiber.Router, auth ...fiber.Handler) {
	r.Get("/contractor/dashboard", chain(auth, mw.RequireRoles(models.RoleContractor), h.Stats)...)
}

func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	stats, err := h.Lifecycle.ContractorDashboard(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, stats)
}
