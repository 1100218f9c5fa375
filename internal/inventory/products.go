package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kasir-sync/internal/models"
	"kasir-sync/internal/obs"
	"kasir-sync/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductInput struct {
	Name               string          `json:"name"`
	Category           string          `json:"category"`
	BuyPrice           decimal.Decimal `json:"buy_price"`
	SellPrice          decimal.Decimal `json:"sell_price"`
	WholesalePrice     decimal.Decimal `json:"wholesale_price"`
	WholesaleThreshold int             `json:"wholesale_threshold"`
	Stock              int             `json:"stock"`
	Barcode            *string         `json:"barcode"`
}

// ProductPatch carries the fields to change; nil fields are left alone.
type ProductPatch struct {
	Name               *string          `json:"name"`
	Category           *string          `json:"category"`
	BuyPrice           *decimal.Decimal `json:"buy_price"`
	SellPrice          *decimal.Decimal `json:"sell_price"`
	WholesalePrice     *decimal.Decimal `json:"wholesale_price"`
	WholesaleThreshold *int             `json:"wholesale_threshold"`
	Stock              *int             `json:"stock"`
	Barcode            *string          `json:"barcode"`
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Barcode = cleanBarcode(in.Barcode)
	if err := validateProduct(in); err != nil {
		return models.Product{}, err
	}
	if err := s.checkBarcode(ctx, in.Barcode, ""); err != nil {
		return models.Product{}, err
	}

	p := models.Product{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		BuyPrice:           in.BuyPrice,
		SellPrice:          in.SellPrice,
		WholesalePrice:     in.WholesalePrice,
		WholesaleThreshold: in.WholesaleThreshold,
		Stock:              in.Stock,
		Category:           in.Category,
		Barcode:            in.Barcode,
		SyncState:          models.SyncState{UpdatedAt: s.store.Now()},
	}
	if err := s.store.Products.UpsertAll(ctx, []models.Product{p}); err != nil {
		return models.Product{}, err
	}
	obs.Logger.Info("product_created", "product_id", p.ID, "name", p.Name)
	s.requestSync()
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (models.Product, error) {
	current, err := s.store.Products.Get(ctx, id)
	if err != nil {
		return models.Product{}, err
	}

	fields := map[string]any{}
	next := ProductInput{
		Name:               current.Name,
		Category:           current.Category,
		BuyPrice:           current.BuyPrice,
		SellPrice:          current.SellPrice,
		WholesalePrice:     current.WholesalePrice,
		WholesaleThreshold: current.WholesaleThreshold,
		Stock:              current.Stock,
		Barcode:            current.Barcode,
	}
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
		fields["name"] = next.Name
	}
	if patch.Category != nil {
		next.Category = strings.TrimSpace(*patch.Category)
		fields["category"] = next.Category
	}
	if patch.BuyPrice != nil {
		next.BuyPrice = *patch.BuyPrice
		fields["buy_price"] = next.BuyPrice
	}
	if patch.SellPrice != nil {
		next.SellPrice = *patch.SellPrice
		fields["sell_price"] = next.SellPrice
	}
	if patch.WholesalePrice != nil {
		next.WholesalePrice = *patch.WholesalePrice
		fields["wholesale_price"] = next.WholesalePrice
	}
	if patch.WholesaleThreshold != nil {
		next.WholesaleThreshold = *patch.WholesaleThreshold
		fields["wholesale_threshold"] = next.WholesaleThreshold
	}
	if patch.Stock != nil {
		next.Stock = *patch.Stock
		fields["stock"] = next.Stock
	}
	if patch.Barcode != nil {
		next.Barcode = cleanBarcode(patch.Barcode)
		fields["barcode"] = next.Barcode
		if err := s.checkBarcode(ctx, next.Barcode, id); err != nil {
			return models.Product{}, err
		}
	}
	if err := validateProduct(next); err != nil {
		return models.Product{}, err
	}
	if len(fields) == 0 {
		return current, nil
	}

	if err := s.store.Products.Update(ctx, id, fields); err != nil {
		return models.Product{}, err
	}
	s.requestSync()
	return s.store.Products.Get(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.Products.GetAll(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (models.Product, error) {
	return s.store.Products.Get(ctx, id)
}

// FindByBarcode resolves a scanned code to a product.
func (s *Service) FindByBarcode(ctx context.Context, code string) (models.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.Product{}, fmt.Errorf("empty barcode: %w", store.ErrNotFound)
	}
	return s.store.Products.FindOne(ctx, "barcode", code)
}

// DeleteProduct removes the product locally and then asks the server once to
// drop it too. A failed remote delete is logged and not retried, so the product
// comes back with the next pull. It reports whether the server confirmed.
func (s *Service) DeleteProduct(ctx context.Context, id string) (bool, error) {
	if err := s.store.Products.Delete(ctx, id); err != nil {
		return false, err
	}
	obs.Logger.Info("product_deleted", "product_id", id)
	if s.remote == nil {
		return false, nil
	}
	if err := s.remote.DeleteProduct(ctx, id); err != nil {
		obs.Logger.Warn("product_remote_delete_failed", "product_id", id, "err", err)
		return false, nil
	}
	return true, nil
}

func validateProduct(in ProductInput) error {
	switch {
	case in.Name == "":
		return fmt.Errorf("name is required: %w", ErrInvalidProduct)
	case in.BuyPrice.IsNegative(), in.SellPrice.IsNegative(), in.WholesalePrice.IsNegative():
		return fmt.Errorf("prices must not be negative: %w", ErrInvalidProduct)
	case in.WholesaleThreshold < 0:
		return fmt.Errorf("wholesale threshold must not be negative: %w", ErrInvalidProduct)
	}
	return nil
}

func (s *Service) checkBarcode(ctx context.Context, code *string, selfID string) error {
	if code == nil {
		return nil
	}
	other, err := s.store.Products.FindOne(ctx, "barcode", *code)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if other.ID != selfID {
		return fmt.Errorf("%s (%s): %w", *code, other.Name, ErrDuplicateBarcode)
	}
	return nil
}

func cleanBarcode(code *string) *string {
	if code == nil {
		return nil
	}
	c := strings.TrimSpace(*code)
	if c == "" {
		return nil
	}
	return &c
}
