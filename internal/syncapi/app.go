package syncapi

import (
	"strings"

	"kasir-sync/internal/audit"
	"kasir-sync/internal/auth"
	"kasir-sync/internal/models"
	"kasir-sync/internal/obs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type Options struct {
	JWTSecret   string
	CORSOrigins string // comma separated
	AccessLog   bool
}

// NewApp assembles the reference server: public auth routes plus the
// authenticated sync, account and audit routes under /api.
func NewApp(db *gorm.DB, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          obs.ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}

	if opts.CORSOrigins != "" {
		origins := strings.Split(opts.CORSOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(origins, ","),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		}))
	}

	api := app.Group("/api")

	api.Post("/auth/register-owner", auth.RegisterOwnerHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, opts.JWTSecret))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(opts.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler())

	Register(protected, db)

	adminOnly := auth.RequireRole(models.RoleAdmin)
	protected.Post("/users", adminOnly, auth.CreateUserHandler(db))
	protected.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler(db))

	return app
}
