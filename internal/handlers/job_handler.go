package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	mw "github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/lifecycle"
)

type JobHandler struct {
	Lifecycle *lifecycle.Service
	Catalog   *catalog.Catalog
}

func NewJobHandler(lc *lifecycle.Service, cat *catalog.Catalog) *JobHandler {
	return &JobHandler{Lifecycle: lc, Catalog: cat}
}

func (h *JobHandler) Routes(r fiber.Router, auth ...fiber.Handler) {
	g := r.Group("/jobs", chain(auth, mw.RequireRoles())...)
	g.Get("/", h.List)
	g.Get("/mine", h.Mine)
	g.Get("/:id", h.Get)
	g.Post("/", mw.RequireRoles(models.RoleClient), h.Post)
	g.Post("/:id/applications", mw.RequireRoles(models.RoleContractor), h.Apply)
	g.Put("/:id", mw.RequireRoles(models.RoleClient, models.RoleAdmin), h.Update)
	g.Put("/:id/assign", mw.RequireRoles(models.RoleClient, models.RoleAdmin), h.Assign)
	g.Put("/:id/complete", h.Complete)
	g.Delete("/:id", mw.RequireRoles(models.RoleClient, models.RoleAdmin), h.Delete)
}

func (h *JobHandler) List(c *fiber.Ctx) error {
	jobs, err := h.Lifecycle.ListJobs(c.UserContext(), lifecycle.JobFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
	})
	if err != nil {
		return err
	}
	return ok(c, jobs)
}

// Mine lists a client's own jobs, or the jobs a contractor applied to.
func (h *JobHandler) Mine(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	var jobs []models.Job
	switch actor.Role {
	case models.RoleContractor:
		p, err := h.Catalog.ContractorForUser(ctx, actor.UserID)
		if err != nil {
			return err
		}
		jobs, err = h.Lifecycle.JobsAppliedBy(ctx, p.ID)
		if err != nil {
			return err
		}
	default:
		jobs, err = h.Lifecycle.JobsForClient(ctx, actor.UserID)
		if err != nil {
			return err
		}
	}
	return ok(c, jobs)
}

func (h *JobHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	job, err := h.Lifecycle.GetJob(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, job)
}

func (h *JobHandler) Post(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	var req lifecycle.PostJobInput
	if err := bind(c, &req); err != nil {
		return err
	}

	job, err := h.Lifecycle.PostJob(c.UserContext(), actor.UserID, req)
	if err != nil {
		return err
	}
	return created(c, "job posted", job)
}

func (h *JobHandler) Update(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req lifecycle.UpdateJobInput
	if err := bind(c, &req); err != nil {
		return err
	}

	job, err := h.Lifecycle.UpdateJob(c.UserContext(), id, actor, req)
	if err != nil {
		return err
	}
	return ok(c, job)
}

type applyReq struct {
	Proposal string `json:"proposal"`
}

func (h *JobHandler) Apply(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req applyReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	p, err := h.Catalog.ContractorForUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	app, err := h.Lifecycle.ApplyToJob(ctx, id, p.ID, req.Proposal)
	if err != nil {
		return err
	}
	return created(c, "application submitted", app)
}

type assignReq struct {
	ContractorID string `json:"contractor_id"`
}

func (h *JobHandler) Assign(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req assignReq
	if err := bind(c, &req); err != nil {
		return err
	}
	contractorID, err := uuid.Parse(req.ContractorID)
	if err != nil {
		return apperr.Invalid("contractor_id", "contractor_id must be a valid id")
	}

	job, err := h.Lifecycle.AssignJob(c.UserContext(), id, actor, contractorID)
	if err != nil {
		return err
	}
	return ok(c, job)
}

func (h *JobHandler) Complete(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	job, err := h.Lifecycle.CompleteJob(c.UserContext(), id, actor)
	if err != nil {
		return err
	}
	return ok(c, job)
}

func (h *JobHandler) Delete(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Lifecycle.DeleteJob(c.UserContext(), id, actor); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "job deleted",
	})
}
