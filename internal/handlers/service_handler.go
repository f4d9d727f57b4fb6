package handlers

import (
	"github.com/gofiber/fiber/v2"

	mw "github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/catalog"
)

type ServiceHandler struct {
	Catalog *catalog.Catalog
}

func NewServiceHandler(cat *catalog.Catalog) *ServiceHandler {
	return &ServiceHandler{Catalog: cat}
}

func (h *ServiceHandler) Routes(r fiber.Router, auth ...fiber.Handler) {
	g := r.Group("/services")
	g.Get("/", h.List)
	g.Get("/categories", h.GetCategories)
	g.Get("/:id", h.Get)
	g.Post("/", chain(auth, mw.RequireRoles(models.RoleAdmin), h.Create)...)
	g.Put("/:id", chain(auth, mw.RequireRoles(models.RoleAdmin), h.Update)...)
	g.Delete("/:id", chain(auth, mw.RequireRoles(models.RoleAdmin), h.Delete)...)
}

func (h *ServiceHandler) List(c *fiber.Ctx) error {
	list, err := h.Catalog.ListServices(c.UserContext(), c.Query("category"))
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *ServiceHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, categories)
}

func (h *ServiceHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	s, err := h.Catalog.GetService(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, s)
}

func (h *ServiceHandler) Create(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req catalog.ServiceInput
	if err := bind(c, &req); err != nil {
		return err
	}

	s, err := h.Catalog.CreateService(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return created(c, "service created", s)
}

func (h *ServiceHandler) Update(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req catalog.ServiceInput
	if err := bind(c, &req); err != nil {
		return err
	}

	s, err := h.Catalog.UpdateService(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return ok(c, s)
}

func (h *ServiceHandler) Delete(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteService(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "service deleted"})
}
