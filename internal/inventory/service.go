// Package inventory holds the terminal's catalogue operations: products,
// suppliers, purchases and spreadsheet price-list imports.
package inventory

import (
	"context"
	"errors"

	"kasir-sync/internal/gateway"
	"kasir-sync/internal/store"
)

var (
	ErrInvalidProduct   = errors.New("invalid product")
	ErrDuplicateBarcode = errors.New("barcode already used by another product")
	ErrInvalidSupplier  = errors.New("invalid supplier")
	ErrInvalidPurchase  = errors.New("invalid purchase")
)

// SyncRequester is told that there is new local data to push.
type SyncRequester interface {
	Request()
}

// Remote is the part of the gateway inventory needs: the one-shot product delete.
type Remote interface {
	DeleteProduct(ctx context.Context, id string) error
}

type Service struct {
	store  *store.Store
	remote Remote
	sync   SyncRequester
}

// NewService wires the inventory operations. remote and sync may be nil.
func NewService(s *store.Store, remote Remote, sync SyncRequester) *Service {
	return &Service{store: s, remote: remote, sync: sync}
}

var _ Remote = (gateway.Gateway)(nil)

func (s *Service) requestSync() {
	if s.sync != nil {
		s.sync.Request()
	}
}
