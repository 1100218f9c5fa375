// Package syncapi serves the terminal sync contract: full-list pulls and
// idempotent-by-id batch pushes for every synchronised kind.
package syncapi

import (
	"fmt"

	"kasir-sync/internal/audit"
	"kasir-sync/internal/auth"
	"kasir-sync/internal/gateway"
	"kasir-sync/internal/models"
	"kasir-sync/internal/obs"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type record interface {
	RecordID() string
}

// payload is a wire element that converts to the stored model M.
type payload[M record] interface {
	Validate() error
	Model() M
}

type saveFunc[M record] func(tx *gorm.DB, rows []M) error

// Register mounts the sync routes on an authenticated router.
func Register(r fiber.Router, db *gorm.DB) {
	r.Get("/products", ListProductsHandler(db))
	r.Get("/suppliers", ListSuppliersHandler(db))
	r.Get("/transactions", ListTransactionsHandler(db))
	r.Get("/purchases", ListPurchasesHandler(db))

	r.Post("/products/sync", PushHandler[gateway.ProductPayload, models.Product](db, models.KindProduct, upsertRows[models.Product]))
	r.Post("/suppliers/sync", PushHandler[gateway.SupplierPayload, models.Supplier](db, models.KindSupplier, upsertRows[models.Supplier]))
	r.Post("/purchases/sync", PushHandler[gateway.PurchasePayload, models.Purchase](db, models.KindPurchase, upsertRows[models.Purchase]))
	r.Post("/transactions/sync", PushHandler[gateway.TransactionPayload, models.Transaction](db, models.KindTransaction, upsertTransactions))

	r.Delete("/products/:id", auth.RequireRole(models.RoleAdmin), DeleteProductHandler(db))
}

// GET /api/products
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []models.Product
		if err := db.Order("name asc, id asc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list products")
		}
		out := make([]gateway.ProductPayload, 0, len(rows))
		for _, p := range rows {
			out = append(out, gateway.ProductToWire(p))
		}
		return c.JSON(out)
	}
}

// GET /api/suppliers
func ListSuppliersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []models.Supplier
		if err := db.Order("name asc, id asc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list suppliers")
		}
		out := make([]gateway.SupplierPayload, 0, len(rows))
		for _, s := range rows {
			out = append(out, gateway.SupplierToWire(s))
		}
		return c.JSON(out)
	}
}

// GET /api/transactions: newest first, items included.
func ListTransactionsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []models.Transaction
		err := db.Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("id asc") }).
			Order("date desc, id asc").
			Find(&rows).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list transactions")
		}
		out := make([]gateway.TransactionPayload, 0, len(rows))
		for _, t := range rows {
			out = append(out, gateway.TransactionToWire(t))
		}
		return c.JSON(out)
	}
}

// GET /api/purchases
func ListPurchasesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []models.Purchase
		if err := db.Order("date desc, id asc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list purchases")
		}
		out := make([]gateway.PurchasePayload, 0, len(rows))
		for _, p := range rows {
			out = append(out, gateway.PurchaseToWire(p))
		}
		return c.JSON(out)
	}
}

// PushHandler accepts a JSON array of P, stores every element by id in one
// database transaction and acknowledges all of them. One malformed element
// rejects the whole batch.
func PushHandler[P payload[M], M record](db *gorm.DB, kind models.Kind, save saveFunc[M]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var batch []P
		if err := c.BodyParser(&batch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid %s batch", kind))
		}

		rows := make([]M, 0, len(batch))
		for i, p := range batch {
			if err := p.Validate(); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("element %d: %v", i, err))
			}
			rows = append(rows, p.Model())
		}
		rows = lastByID(rows)

		ids := make([]string, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.RecordID())
		}
		if len(rows) == 0 {
			return c.JSON(gateway.PushResponse{Status: gateway.StatusSuccess, SyncedIDs: ids})
		}

		userID, userName, _ := auth.Actor(c)
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := save(tx, rows); err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  string(kind),
				IDs:         ids,
				Action:      models.AuditActionPush,
				Description: fmt.Sprintf("%d %s rows pushed", len(ids), kind),
			})
		})
		if err != nil {
			obs.Logger.Error("push_store_failed", "kind", kind, "count", len(rows), "err", err)
			return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("could not store %s batch", kind))
		}

		obs.Logger.Info("push_accepted", "kind", kind, "count", len(ids), "user_id", userID)
		return c.JSON(gateway.PushResponse{Status: gateway.StatusSuccess, SyncedIDs: ids})
	}
}

// DELETE /api/products/:id (admin). Deleting an unknown id succeeds.
func DeleteProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing product id")
		}

		userID, userName, _ := auth.Actor(c)
		var removed int64
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			res := tx.Where("id = ?", id).Delete(&models.Product{})
			if res.Error != nil {
				return res.Error
			}
			removed = res.RowsAffected
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  string(models.KindProduct),
				IDs:         []string{id},
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("product deleted (%d rows)", removed),
			})
		})
		if err != nil {
			obs.Logger.Error("product_delete_failed", "product_id", id, "err", err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete product")
		}

		obs.Logger.Info("product_deleted", "product_id", id, "removed", removed)
		return c.JSON(gateway.PushResponse{Status: gateway.StatusSuccess, SyncedIDs: []string{}})
	}
}

func upsertRows[M record](tx *gorm.DB, rows []M) error {
	for i := range rows {
		markStored(&rows[i])
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

// upsertTransactions stores headers by id and replaces each transaction's items.
func upsertTransactions(tx *gorm.DB, rows []models.Transaction) error {
	ids := make([]string, 0, len(rows))
	var items []models.TransactionItem
	for i := range rows {
		rows[i].Synced = true
		ids = append(ids, rows[i].ID)
		for _, it := range rows[i].Items {
			it.TransactionID = rows[i].ID
			it.Synced = true
			items = append(items, it)
		}
	}

	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert transactions: %w", err)
	}

	if err := tx.Where("transaction_id IN ?", ids).Delete(&models.TransactionItem{}).Error; err != nil {
		return fmt.Errorf("clear transaction items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	// an item id moved between transactions would otherwise collide
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&items).Error
}

// markStored flags server rows as acknowledged; the column only matters on terminals.
func markStored(row any) {
	switch r := row.(type) {
	case *models.Product:
		r.Synced = true
	case *models.Supplier:
		r.Synced = true
	case *models.Purchase:
		r.Synced = true
	}
}

// lastByID keeps the last occurrence of every id, in first-seen order.
func lastByID[M record](rows []M) []M {
	pos := make(map[string]int, len(rows))
	out := make([]M, 0, len(rows))
	for _, r := range rows {
		if i, ok := pos[r.RecordID()]; ok {
			out[i] = r
			continue
		}
		pos[r.RecordID()] = len(out)
		out = append(out, r)
	}
	return out
}
