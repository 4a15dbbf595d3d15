// Package routers assembles the Fiber app from the per-area route packages.
package routers

import (
	"errors"

	applicationController "govdocs/controllers/application"
	authControllers "govdocs/controllers/auth"
	catalogController "govdocs/controllers/catalog"
	dashboardController "govdocs/controllers/dashboard"
	errorRequestController "govdocs/controllers/errorRequest"
	ledgerController "govdocs/controllers/ledger"
	superAdminController "govdocs/controllers/superAdmin"
	userController "govdocs/controllers/userControllers"
	"govdocs/metrics"
	"govdocs/middleware"
	"govdocs/routers/applicationRoutes"
	"govdocs/routers/authRoutes"
	"govdocs/routers/catalogRoutes"
	"govdocs/routers/dashboardRoutes"
	"govdocs/routers/errorRequestRoutes"
	"govdocs/routers/ledgerRoutes"
	superAdminRoutes "govdocs/routers/superAdmin"
	"govdocs/routers/userRoutes"
	"govdocs/services/applications"
	"govdocs/services/catalog"
	"govdocs/services/certificates"
	"govdocs/services/dashboard"
	"govdocs/services/ledger"
	"govdocs/services/users"
	"govdocs/services/workflow"
	"govdocs/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// bodyLimit leaves room for a full submission of several 500 KiB files.
const bodyLimit = 16 * 1024 * 1024

type Services struct {
	Users        *users.Service
	Catalog      *catalog.Service
	Applications *applications.Service
	Workflow     *workflow.Service
	Certificates *certificates.Service
	Ledger       *ledger.Service
	Dashboard    *dashboard.Service
	Store        storage.Store
}

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	RequestLog     bool
	Logger         *logrus.Logger
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return middleware.JsonResponse(c, code, false, message, nil)
}

// New builds the HTTP surface over s.
func New(s Services, opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	middleware.SetLogger(opts.Logger)
	if s.Users != nil {
		middleware.SetAccountCheck(s.Users.RequireActive)
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE",  // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	if opts.RequestLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
		}))
	}
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "OK", nil)
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Local blobs are served under unguessable keys; cloud providers hand
	// out signed URLs instead.
	if local, ok := s.Store.(*storage.Local); ok {
		app.Static("/files", local.Root(), fiber.Static{Download: true})
	}

	limiter := middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst)

	authRoutes.SetupAuthRoutes(app, &authControllers.Handler{Users: s.Users}, limiter)
	userRoutes.SetupUserRoutes(app, &userController.Handler{Users: s.Users})
	superAdminRoutes.SetupSuperAdminRoutes(app, &superAdminController.Handler{Users: s.Users})
	catalogRoutes.SetupCatalogRoutes(app, &catalogController.Handler{Catalog: s.Catalog})
	applicationRoutes.SetupApplicationRoutes(app,
		&applicationController.Handler{Applications: s.Applications, Workflow: s.Workflow},
		&applicationController.CertificateHandler{Certificates: s.Certificates, Logger: opts.Logger},
	)
	errorRequestRoutes.SetupErrorRequestRoutes(app, &errorRequestController.Handler{Workflow: s.Workflow})
	ledgerRoutes.SetupLedgerRoutes(app, &ledgerController.Handler{Ledger: s.Ledger})
	dashboardRoutes.SetupDashboardRoutes(app, &dashboardController.Handler{Dashboard: s.Dashboard})

	return app
}
