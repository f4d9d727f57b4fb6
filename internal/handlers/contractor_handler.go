package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	mw "github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/catalog"
)

type ContractorHandler struct {
	Catalog *catalog.Catalog
}

func NewContractorHandler(cat *catalog.Catalog) *ContractorHandler {
	return &ContractorHandler{Catalog: cat}
}

func (h *ContractorHandler) Routes(r fiber.Router, auth ...fiber.Handler) {
	g := r.Group("/contractors")
	g.Get("/", h.List)
	g.Get("/me", chain(auth, mw.RequireRoles(models.RoleContractor), h.Mine)...)
	g.Get("/:id", h.Get)
	g.Post("/", chain(auth, mw.RequireRoles(models.RoleContractor), h.Create)...)
	g.Put("/:id", chain(auth, mw.RequireRoles(models.RoleContractor, models.RoleAdmin), h.Update)...)
	g.Patch("/:id/verify", chain(auth, mw.RequireRoles(models.RoleAdmin), h.Verify)...)
	g.Delete("/:id", chain(auth, mw.RequireRoles(models.RoleContractor, models.RoleAdmin), h.Delete)...)
}

func (h *ContractorHandler) List(c *fiber.Ctx) error {
	f := catalog.ContractorFilter{Location: c.Query("location")}
	if s := c.Query("service"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return apperr.Invalid("service", "service must be a valid id")
		}
		f.ServiceID = id
	}

	list, err := h.Catalog.ListContractors(c.UserContext(), f)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *ContractorHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Catalog.GetContractor(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, p)
}

func (h *ContractorHandler) Mine(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	p, err := h.Catalog.ContractorForUser(c.UserContext(), actor.UserID)
	if err != nil {
		return err
	}
	return ok(c, p)
}

func (h *ContractorHandler) Create(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req catalog.ContractorInput
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.Catalog.CreateContractor(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return created(c, "contractor profile created", p)
}

func (h *ContractorHandler) Update(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req catalog.ContractorInput
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.Catalog.UpdateContractor(c.UserContext(), actor, id, req)
	if err != nil {
		return err
	}
	return ok(c, p)
}

type verifyReq struct {
	VerificationStatus models.VerificationStatus `json:"verification_status"`
}

func (h *ContractorHandler) Verify(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req verifyReq
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.Catalog.SetContractorVerification(c.UserContext(), actor, id, req.VerificationStatus)
	if err != nil {
		return err
	}
	return ok(c, p)
}

func (h *ContractorHandler) Delete(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteContractor(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "contractor deleted"})
}
