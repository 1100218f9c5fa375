package inventory

import (
	"context"
	"fmt"
	"strings"

	"kasir-sync/internal/models"
	"kasir-sync/internal/obs"

	"github.com/google/uuid"
)

type SupplierInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type SupplierPatch struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (s *Service) CreateSupplier(ctx context.Context, in SupplierInput) (models.Supplier, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Supplier{}, fmt.Errorf("name is required: %w", ErrInvalidSupplier)
	}
	sup := models.Supplier{
		ID:        uuid.NewString(),
		Name:      name,
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		SyncState: models.SyncState{UpdatedAt: s.store.Now()},
	}
	if err := s.store.Suppliers.UpsertAll(ctx, []models.Supplier{sup}); err != nil {
		return models.Supplier{}, err
	}
	obs.Logger.Info("supplier_created", "supplier_id", sup.ID, "name", sup.Name)
	s.requestSync()
	return sup, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, patch SupplierPatch) (models.Supplier, error) {
	fields := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Supplier{}, fmt.Errorf("name must not be empty: %w", ErrInvalidSupplier)
		}
		fields["name"] = name
	}
	if patch.Phone != nil {
		fields["phone"] = strings.TrimSpace(*patch.Phone)
	}
	if patch.Address != nil {
		fields["address"] = strings.TrimSpace(*patch.Address)
	}
	if len(fields) == 0 {
		return s.store.Suppliers.Get(ctx, id)
	}
	if err := s.store.Suppliers.Update(ctx, id, fields); err != nil {
		return models.Supplier{}, err
	}
	s.requestSync()
	return s.store.Suppliers.Get(ctx, id)
}

func (s *Service) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	return s.store.Suppliers.GetAll(ctx)
}
