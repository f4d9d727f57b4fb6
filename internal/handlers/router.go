package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Windi-Fikriyansyah/handygo/internal/config"
	mw "github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/realtime"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/accounts"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/catalog"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/lifecycle"
	"github.com/Windi-Fikriyansyah/handygo/internal/services/verification"
)

// Deps is everything the HTTP layer needs. Registry may be nil, in which
// case /metrics is not mounted.
type Deps struct {
	Config       *config.Config
	Accounts     *accounts.Accounts
	Catalog      *catalog.Catalog
	Lifecycle    *lifecycle.Service
	Verification *verification.Workflow
	Hub          *realtime.Hub
	Registry     *prometheus.Registry
	Log          *slog.Logger
}

func NewApp(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		AppName:               "handygo",
		ErrorHandler:          mw.ErrorHandler(cfg.IsProduction(), d.Log),
		BodyLimit:             8 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))
	if !cfg.IsProduction() {
		app.Use(logger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})
	if d.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	auth := []fiber.Handler{mw.JWT(cfg.JWTSecret), mw.LoadSubject(d.Accounts)}
	secure := cfg.IsProduction()

	api := app.Group("/api")

	(&AuthHandler{Accounts: d.Accounts, Expires: cfg.JWTExpiresMin, SecureCookie: secure}).Routes(api, auth...)
	(&GoogleOAuthHandler{
		Accounts:        d.Accounts,
		Expires:         cfg.JWTExpiresMin,
		SecureCookie:    secure,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}).Routes(api)
	(&UserHandler{Accounts: d.Accounts}).Routes(api, auth...)

	NewServiceHandler(d.Catalog).Routes(api, auth...)
	NewContractorHandler(d.Catalog).Routes(api, auth...)
	NewJobHandler(d.Lifecycle, d.Catalog).Routes(api, auth...)
	(&JobCardHandler{Lifecycle: d.Lifecycle}).Routes(api, auth...)
	(&BookingHandler{Lifecycle: d.Lifecycle}).Routes(api, auth...)
	(&DashboardHandler{Lifecycle: d.Lifecycle}).Routes(api, auth...)
	(&VerificationHandler{Workflow: d.Verification, UploadDir: cfg.UploadDir}).Routes(api, auth...)

	(&NotificationHandler{Hub: d.Hub, Log: d.Log}).Routes(app, auth...)

	return app
}
