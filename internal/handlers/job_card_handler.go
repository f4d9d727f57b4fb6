package handlers

import (
	"github.com/gofiber/fiber/v2"

	mw "github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/lifecycle"
)

type JobCardHandler struct {
	Lifecycle *lifecycle.Service
}

func (h *JobCardHandler) Routes(r fiber.Router, auth ...fiber.Handler) {
	g := r.Group("/job-cards", chain(auth, mw.RequireRoles())...)
	g.Get("/", h.List)
	g.Get("/:id", h.Get)
	g.Post("/", mw.RequireRoles(models.RoleClient), h.Create)
	// Participants are checked in the service, after transition legality.
	g.Patch("/:id/status", h.UpdateStatus)
}

func (h *JobCardHandler) Create(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req lifecycle.CreateJobCardInput
	if err := bind(c, &req); err != nil {
		return err
	}

	card, err := h.Lifecycle.CreateJobCard(c.UserContext(), actor.UserID, req)
	if err != nil {
		return err
	}
	return created(c, "job card created", card)
}

func (h *JobCardHandler) List(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	cards, err := h.Lifecycle.JobCardsFor(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, cards)
}

func (h *JobCardHandler) Get(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	card, err := h.Lifecycle.GetJobCard(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return ok(c, card)
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *JobCardHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}

	card, err := h.Lifecycle.AdvanceJobCardStatus(c.UserContext(), id, actor, models.JobCardStatus(req.Status))
	if err != nil {
		return err
	}
	return ok(c, card)
}
