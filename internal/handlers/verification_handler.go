package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	mw "github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/verification"
)

const (
	maxDocumentSize = 5 * 1024 * 1024
	maxSelfieSize   = 2 * 1024 * 1024
)

var (
	documentExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}
	selfieExts   = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
)

type VerificationHandler struct {
	Workflow  *verification.Workflow
	UploadDir string
}

func (h *VerificationHandler) Routes(r fiber.Router, auth ...fiber.Handler) {
	g := r.Group("/verification", chain(auth, mw.RequireRoles())...)
	g.Get("/", h.Overview)
	g.Post("/start", h.Start)
	g.Post("/document", h.SubmitDocument)
	g.Post("/selfie", h.CaptureSelfie)
	g.Post("/evaluate", h.Evaluate)
	g.Post("/retry", h.Retry)
}

// save writes an upload under UploadDir/verification/<user>/ with a random name.
func (h *VerificationHandler) save(c *fiber.Ctx, userID uuid.UUID, field string, exts map[string]bool, maxSize int64) (verification.FileRef, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return verification.FileRef{}, apperr.Invalid(field, fmt.Sprintf("%s is required (multipart field: %s)", field, field))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !exts[ext] {
		return verification.FileRef{}, apperr.Invalid(field, field+" has an unsupported file type")
	}
	if file.Size > maxSize {
		return verification.FileRef{}, apperr.Invalid(field, fmt.Sprintf("%s max size is %dMB", field, maxSize/(1024*1024)))
	}

	dir := filepath.Join(h.UploadDir, "verification", userID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return verification.FileRef{}, apperr.Internal("failed to create upload dir", err)
	}
	dst := filepath.Join(dir, uuid.New().String()+ext)
	if err := c.SaveFile(file, dst); err != nil {
		return verification.FileRef{}, apperr.Internal("failed to save file", err)
	}

	return verification.FileRef{
		Path:        dst,
		Name:        file.Filename,
		Size:        file.Size,
		ContentType: file.Header.Get("Content-Type"),
	}, nil
}

func (h *VerificationHandler) Overview(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	ov, err := h.Workflow.Overview(c.UserContext(), actor.UserID)
	if err != nil {
		return err
	}
	return ok(c, ov)
}

func (h *VerificationHandler) Start(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	sess, err := h.Workflow.Start(c.UserContext(), actor.UserID)
	if err != nil {
		return err
	}
	return ok(c, sess)
}

// SubmitDocument expects multipart fields document_type and file.
func (h *VerificationHandler) SubmitDocument(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	docType := models.DocumentType(strings.TrimSpace(c.FormValue("document_type")))
	if !docType.Valid() {
		return apperr.Invalid("document_type", "document_type must be passport, license or national-id")
	}

	ref, err := h.save(c, actor.UserID, "file", documentExts, maxDocumentSize)
	if err != nil {
		return err
	}
	sess, err := h.Workflow.SubmitDocument(c.UserContext(), actor.UserID, docType, ref)
	if err != nil {
		_ = os.Remove(ref.Path)
		return err
	}
	return ok(c, sess)
}

// CaptureSelfie expects multipart field selfie. Evaluation starts in the
// background; progress arrives over the notification socket.
func (h *VerificationHandler) CaptureSelfie(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	ref, err := h.save(c, actor.UserID, "selfie", selfieExts, maxSelfieSize)
	if err != nil {
		return err
	}
	sess, err := h.Workflow.CaptureSelfie(c.UserContext(), actor.UserID, ref)
	if err != nil {
		_ = os.Remove(ref.Path)
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "verification submitted",
		"data":    sess,
	})
}

// Evaluate runs the provider synchronously. Used to resume after a
// provider failure.
func (h *VerificationHandler) Evaluate(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	sess, err := h.Workflow.Evaluate(c.UserContext(), actor.UserID)
	if err != nil {
		return err
	}
	return ok(c, sess)
}

func (h *VerificationHandler) Retry(c *fiber.Ctx) error {
	actor, err := getAuth(c)
	if err != nil {
		return err
	}
	sess, err := h.Workflow.Retry(c.UserContext(), actor.UserID)
	if err != nil {
		return err
	}
	return ok(c, sess)
}
