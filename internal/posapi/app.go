// Package posapi is the terminal's local HTTP API for the checkout screen.
// Every write lands in the local store first; the network is only touched by
// session login, product delete and sync passes.
package posapi

import (
	"context"
	"errors"
	"time"

	"kasir-sync/internal/gateway"
	"kasir-sync/internal/inventory"
	"kasir-sync/internal/models"
	"kasir-sync/internal/obs"
	"kasir-sync/internal/reconcile"
	"kasir-sync/internal/sales"
	"kasir-sync/internal/session"
	"kasir-sync/internal/store"
	"kasir-sync/internal/trigger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Syncer is the sync worker as seen by the API.
type Syncer interface {
	Request()
	Sync(ctx context.Context) (reconcile.Result, error)
	LastResult() (reconcile.Result, bool)
	Running() bool
	Delay() time.Duration
}

var _ Syncer = (*trigger.Worker)(nil)

type Deps struct {
	Store     *store.Store
	Session   *session.Session
	Auth      session.Authenticator
	Sales     *sales.Writer
	Inventory *inventory.Service
	Sync      Syncer
	AccessLog bool
}

func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          obs.ErrorHandler,
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024, // price-list uploads
	})
	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New())
	}

	api := app.Group("/api")

	api.Get("/session", SessionStateHandler(d.Session))
	api.Post("/session/login", LoginHandler(d.Session, d.Auth, d.Sync))
	api.Post("/session/logout", LogoutHandler(d.Session))

	api.Get("/products", ListProductsHandler(d.Inventory))
	api.Post("/products", CreateProductHandler(d.Inventory))
	api.Post("/products/import", ImportProductsHandler(d.Inventory))
	api.Get("/products/barcode/:code", FindByBarcodeHandler(d.Inventory))
	api.Put("/products/:id", UpdateProductHandler(d.Inventory))
	api.Delete("/products/:id", RequireAdmin(d.Session), DeleteProductHandler(d.Inventory))

	api.Get("/suppliers", ListSuppliersHandler(d.Inventory))
	api.Post("/suppliers", CreateSupplierHandler(d.Inventory))
	api.Put("/suppliers/:id", UpdateSupplierHandler(d.Inventory))

	api.Get("/purchases", ListPurchasesHandler(d.Inventory))
	api.Post("/purchases", CreatePurchaseHandler(d.Inventory))

	api.Get("/transactions", ListTransactionsHandler(d.Store))
	api.Post("/sales", RecordSaleHandler(d.Sales, d.Session))

	api.Post("/sync", SyncNowHandler(d.Sync))
	api.Get("/sync/status", SyncStatusHandler(d.Store, d.Sync))

	return app
}

// RequireAdmin lets the request through only for a signed-in admin.
func RequireAdmin(s *session.Session) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, err := s.Role()
		if err != nil {
			return toFiber(err)
		}
		if role != string(models.RoleAdmin) {
			return fiber.NewError(fiber.StatusForbidden, "admin role required")
		}
		return c.Next()
	}
}

// toFiber maps domain errors onto HTTP status codes.
func toFiber(err error) error {
	var netErr *gateway.NetworkError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrUnauthenticated):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrAlreadyLoggedIn), errors.Is(err, inventory.ErrDuplicateBarcode):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, sales.ErrEmptyCart),
		errors.Is(err, sales.ErrInvalidQuantity),
		errors.Is(err, sales.ErrInvalidAmount),
		errors.Is(err, sales.ErrInsufficientPayment),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, inventory.ErrInvalidProduct),
		errors.Is(err, inventory.ErrInvalidSupplier),
		errors.Is(err, inventory.ErrInvalidPurchase),
		errors.Is(err, inventory.ErrInvalidSpreadsheet),
		errors.Is(err, session.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, trigger.ErrNotStarted), errors.Is(err, trigger.ErrStopped):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.As(err, &netErr):
		if netErr.StatusCode == fiber.StatusUnauthorized {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}
		return fiber.NewError(fiber.StatusBadGateway, "server unreachable")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	}
	obs.Logger.Error("request_failed", "err", err)
	return fiber.NewError(fiber.StatusInternalServerError, "unexpected error")
}
