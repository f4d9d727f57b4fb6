package handlers

import (
	"github.com/gofiber/fiber/v2"

	mw "github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/lifecycle"
)

type BookingHandler struct {
	Lifecycle *lifecycle.Service
}

func (h *BookingHandler) Routes(r fiber.Router, auth ...fiber.Handler) {
	g := r.Group("/bookings", chain(auth, mw.RequireRoles())...)
	g.Get("/", mw.RequireRoles(models.RoleAdmin), h.List)
	g.Get("/mine", h.Mine)
	g.Get("/:id", h.Get)
	g.Post("/", mw.RequireRoles(models.RoleClient), h.Create)
	// Participants are checked in the service, after transition legality.
	g.Patch("/:id/status", h.UpdateStatus)
	g.Delete("/:id", h.Cancel)
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req lifecycle.CreateBookingInput
	if err := bind(c, &req); err != nil {
		return err
	}

	b, err := h.Lifecycle.CreateBooking(c.UserContext(), actor.UserID, req)
	if err != nil {
		return err
	}
	return created(c, "booking created", b)
}

func (h *BookingHandler) List(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	list, err := h.Lifecycle.ListBookings(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *BookingHandler) Mine(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	list, err := h.Lifecycle.BookingsFor(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.Lifecycle.GetBooking(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return ok(c, b)
}

func (h *BookingHandler) UpdateStatus(c *fiber.Ctx) error {
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

	b, err := h.Lifecycle.AdvanceBookingStatus(c.UserContext(), id, actor, models.BookingStatus(req.Status))
	if err != nil {
		return err
	}
	return ok(c, b)
}

// Cancel is open to the client and the contractor while the booking is
// pending or confirmed.
func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	b, err := h.Lifecycle.CancelBooking(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "booking cancelled",
		"data":    b,
	})
}
