package inventory

import (
	"context"
	"fmt"
	"time"

	"kasir-sync/internal/models"
	"kasir-sync/internal/obs"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PurchaseInput struct {
	SupplierID string          `json:"supplier_id"`
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	Date       *time.Time      `json:"date"`
}

// RecordPurchase stores a restock. Product stock is not changed by it.
func (s *Service) RecordPurchase(ctx context.Context, in PurchaseInput) (models.Purchase, error) {
	if in.Quantity <= 0 {
		return models.Purchase{}, fmt.Errorf("quantity must be greater than zero: %w", ErrInvalidPurchase)
	}
	if in.TotalCost.IsNegative() {
		return models.Purchase{}, fmt.Errorf("total cost must not be negative: %w", ErrInvalidPurchase)
	}
	if _, err := s.store.Suppliers.Get(ctx, in.SupplierID); err != nil {
		return models.Purchase{}, err
	}
	if _, err := s.store.Products.Get(ctx, in.ProductID); err != nil {
		return models.Purchase{}, err
	}

	date := time.Now()
	if in.Date != nil {
		date = *in.Date
	}
	p := models.Purchase{
		ID:         uuid.NewString(),
		SupplierID: in.SupplierID,
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		TotalCost:  in.TotalCost,
		Date:       date.UTC().Truncate(time.Microsecond),
		SyncState:  models.SyncState{UpdatedAt: s.store.Now()},
	}
	if err := s.store.Purchases.UpsertAll(ctx, []models.Purchase{p}); err != nil {
		return models.Purchase{}, err
	}
	obs.Logger.Info("purchase_recorded", "purchase_id", p.ID, "supplier_id", p.SupplierID, "product_id", p.ProductID, "quantity", p.Quantity)
	s.requestSync()
	return p, nil
}

func (s *Service) ListPurchases(ctx context.Context) ([]models.Purchase, error) {
	return s.store.Purchases.GetAll(ctx)
}
