package posapi

import (
	"kasir-sync/internal/store"

	"github.com/gofiber/fiber/v2"
)

// POST /api/sync: runs (or joins) a pass and returns its per-kind result.
// A pass that could not reach the server is still a 200; the body says so.
func SyncNowHandler(sync Syncer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := sync.Sync(c.UserContext())
		if err != nil {
			return toFiber(err)
		}
		return c.JSON(res)
	}
}

// GET /api/sync/status
func SyncStatusHandler(st *store.Store, sync Syncer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dirty, err := st.DirtyCounts(c.UserContext())
		if err != nil {
			return toFiber(err)
		}
		resp := fiber.Map{
			"dirty":         dirty,
			"running":       sync.Running(),
			"next_delay_ms": sync.Delay().Milliseconds(),
			"last":          nil,
		}
		if last, ok := sync.LastResult(); ok {
			resp["last"] = last
		}
		return c.JSON(resp)
	}
}
