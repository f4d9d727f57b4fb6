package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
	"github.com/Windi-Fikriyansyah/handygo/internal/utils"
)

const secret = "test-secret"

type stubLoader map[uuid.UUID]*models.User

func (s stubLoader) Subject(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s[id]
	if !ok || !u.IsActive {
		return nil, apperr.Unauthenticated()
	}
	return u, nil
}

func newApp(production bool, users stubLoader) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(production, slog.New(slog.NewTextHandler(io.Discard, nil))),
	})
	auth := []fiber.Handler{JWT(secret), LoadSubject(users)}

	app.Get("/me", append(auth, func(c *fiber.Ctx) error {
		u, err := CurrentUser(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "data": u})
	})...)
	app.Get("/admin", append(auth, RequireRoles(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})...)
	app.Get("/any-role", append(auth, RequireRoles(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})...)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("db exploded")
	})
	app.Get("/invalid", func(c *fiber.Ctx) error {
		errs := apperr.FieldErrors{}
		errs.Add("title", "title is required")
		errs.Add("budget", "budget must be greater than zero")
		return apperr.Validation(errs)
	})
	return app
}

func token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := utils.SignJWT(secret, u.ID.String(), string(u.Role), 10)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestAuthChain(t *testing.T) {
	client := &models.User{ID: uuid.New(), Name: "C1", Role: models.RoleClient, IsActive: true}
	unset := &models.User{ID: uuid.New(), Name: "New", Role: models.RoleUnset, IsActive: true}
	gone := &models.User{ID: uuid.New(), Name: "Gone", Role: models.RoleClient, IsActive: false}
	app := newApp(true, stubLoader{client.ID: client, unset.ID: unset, gone.ID: gone})

	t.Run("no token", func(t *testing.T) {
		status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "invalid credentials", body["message"])
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, client))
		status, body := do(t, app, req)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, client.ID.String(), body["data"].(map[string]any)["id"])
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token(t, client)})
		status, _ := do(t, app, req)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("tampered token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, client)+"x")
		status, _ := do(t, app, req)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("inactive subject", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, gone))
		status, _ := do(t, app, req)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, client))
		status, body := do(t, app, req)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "not authorized", body["message"])
	})

	t.Run("unset role is refused on gated routes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/any-role", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, unset))
		status, _ := do(t, app, req)
		assert.Equal(t, http.StatusForbidden, status)

		req = httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, unset))
		status, _ = do(t, app, req)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestErrorHandler(t *testing.T) {
	status, body := do(t, newApp(true, nil), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["message"])
	assert.NotContains(t, body, "stack")

	_, body = do(t, newApp(false, nil), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, "db exploded", body["stack"])

	status, body = do(t, newApp(true, nil), httptest.NewRequest(http.MethodGet, "/invalid", nil))
	assert.Equal(t, http.StatusBadRequest, status)
	fields := body["errors"].(map[string]any)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "budget")

	status, body = do(t, newApp(true, nil), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}
