package posapi

import (
	"strings"

	"kasir-sync/internal/sales"
	"kasir-sync/internal/session"
	"kasir-sync/internal/store"

	"github.com/gofiber/fiber/v2"
)

// POST /api/sales. The cashier defaults to the signed-in user.
func RecordSaleHandler(w *sales.Writer, s *session.Session) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body sales.Sale
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if strings.TrimSpace(body.Cashier) == "" {
			body.Cashier = s.State().UserName
		}

		id, err := w.RecordSale(c.UserContext(), body)
		if err != nil {
			return toFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	}
}

// GET /api/transactions?limit=50: newest first with items.
func ListTransactionsHandler(st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 0)
		if limit < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
		}
		rows, err := st.TransactionsWithItems(c.UserContext(), limit)
		if err != nil {
			return toFiber(err)
		}
		return c.JSON(rows)
	}
}
