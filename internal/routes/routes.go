// Package routes builds the fiber application and maps every HTTP route to
// its handler and permission.
package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"amlguard/internal/handlers"
	"amlguard/internal/metrics"
	"amlguard/internal/middleware"
	"amlguard/internal/models"
	"amlguard/internal/repositories/cache"
	"amlguard/internal/services/alert"
	"amlguard/internal/services/auth"
	"amlguard/internal/services/report"
	"amlguard/internal/services/transaction"
)

// AppOptions configures the fiber app and its global middleware.
type AppOptions struct {
	AllowOrigins string
	Metrics      metrics.Collector
	// AccessLog enables fiber's request logger.
	AccessLog bool
}

// NewApp creates the fiber app with the middleware every route shares.
func NewApp(opts AppOptions) *fiber.App {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}

	app := fiber.New(fiber.Config{
		AppName:      "amlguard",
		BodyLimit:    handlers.MaxUploadBytes,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestContext())
	app.Use(middleware.Metrics(opts.Metrics))
	if opts.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowOrigins,
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
			AllowCredentials: true,
		}))
	}
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		log.Ctx(c.UserContext()).Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}

// Dependencies are the services behind the HTTP API. Cache and
// MetricsHandler may be nil.
type Dependencies struct {
	DB                 *gorm.DB
	Cache              *cache.CacheService
	AuthService        auth.Service
	TransactionService transaction.Service
	AlertService       *alert.Service
	ReportService      *report.Service
	MetricsHandler     http.Handler

	// AuthRateLimit caps register and login attempts per IP per minute.
	AuthRateLimit int
	SecureCookies bool
	RefreshTTL    time.Duration
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.SecureCookies, deps.RefreshTTL)
	userHandler := handlers.NewUserHandler(deps.AuthService)
	transactionHandler := handlers.NewTransactionHandler(deps.TransactionService)
	dashboardHandler := handlers.NewDashboardHandler(deps.TransactionService, deps.AlertService)
	reportHandler := handlers.NewReportHandler(deps.ReportService)
	riskHandler := handlers.NewRiskHandler(deps.TransactionService)
	alertHandler := handlers.NewAlertHandler(deps.AlertService)
	adminHandler := handlers.NewAdminHandler(deps.TransactionService, deps.AuthService, deps.Cache)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Cache)

	app.Get("/health", healthHandler.Check)
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	api := app.Group("/api")

	// Public endpoints
	authLimit := rateLimit(deps.AuthRateLimit)
	api.Post("/register", authLimit, authHandler.Register)
	api.Post("/login", authLimit, authHandler.Login)
	api.Post("/refresh", authHandler.Refresh)

	authMiddleware := middleware.NewAuthMiddleware(deps.AuthService)
	protected := api.Group("", authMiddleware.Handler)

	protected.Get("/user", userHandler.Me)
	protected.Put("/user/password", userHandler.ChangePassword)
	protected.Post("/logout", authHandler.Logout)

	read := middleware.HasPermission(models.PermissionTransactionRead)
	write := middleware.HasPermission(models.PermissionTransactionWrite)

	protected.Get("/dashboard", read, dashboardHandler.Overview)
	protected.Get("/export-all-transactions-csv", middleware.HasPermission(models.PermissionTransactionExport), reportHandler.Export)

	txs := protected.Group("/transactions")
	txs.Get("/", read, transactionHandler.List)
	txs.Post("/", write, transactionHandler.Create)
	txs.Delete("/", middleware.HasPermission(models.PermissionWriteAdmin), transactionHandler.DeleteAll)
	txs.Get("/summary", read, dashboardHandler.Summary)
	txs.Post("/upload", write, reportHandler.Upload)
	txs.Get("/:id", read, transactionHandler.Get)
	txs.Put("/:id", write, transactionHandler.Update)
	txs.Patch("/:id", write, transactionHandler.Patch)
	txs.Delete("/:id", write, transactionHandler.Delete)

	riskGroup := protected.Group("/risk", read)
	riskGroup.Post("/evaluate", riskHandler.Evaluate)
	riskGroup.Get("/rules", riskHandler.Rules)

	alerts := protected.Group("/alerts")
	alerts.Get("/", middleware.HasPermission(models.PermissionAlertRead), alertHandler.List)
	alerts.Get("/:id", middleware.HasPermission(models.PermissionAlertRead), alertHandler.Get)
	alerts.Patch("/:id", middleware.HasPermission(models.PermissionAlertWrite), alertHandler.Transition)

	admin := protected.Group("/admin", middleware.AdminOnly)
	admin.Post("/reassess", adminHandler.Reassess)
	admin.Post("/users", adminHandler.CreateUser)
	admin.Get("/cache-stats", adminHandler.CacheStats)
}

func rateLimit(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})
}
