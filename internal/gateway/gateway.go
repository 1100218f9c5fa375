// Package gateway is the terminal's boundary to the remote server: batch push and
// full pull per entity kind, plus the one-shot product delete.
package gateway

import (
	"context"
	"encoding/json"

	"kasir-sync/internal/models"
)

const StatusSuccess = "success"

// Gateway is what the reconciler needs from the network. Every error it returns
// means the call did not take effect as far as the caller can tell.
type Gateway interface {
	PushProducts(ctx context.Context, batch []models.Product) (PushResponse, error)
	// PushTransactions sends each transaction together with its Items in one element.
	PushTransactions(ctx context.Context, batch []models.Transaction) (PushResponse, error)
	PushSuppliers(ctx context.Context, batch []models.Supplier) (PushResponse, error)
	PushPurchases(ctx context.Context, batch []models.Purchase) (PushResponse, error)

	PullProducts(ctx context.Context) ([]models.Product, error)
	PullSuppliers(ctx context.Context) ([]models.Supplier, error)
	PullTransactions(ctx context.Context) ([]models.Transaction, error)

	DeleteProduct(ctx context.Context, id string) error
}

// PushResponse is the server's acknowledgement of a pushed batch.
type PushResponse struct {
	Status    string   `json:"status"`
	SyncedIDs []string `json:"syncedIds"`
}

func (r PushResponse) OK() bool { return r.Status == StatusSuccess }

// UnmarshalJSON accepts both syncedIds and synced_ids.
func (r *PushResponse) UnmarshalJSON(b []byte) error {
	var raw struct {
		Status     string   `json:"status"`
		SyncedIDs  []string `json:"syncedIds"`
		SyncedIDs2 []string `json:"synced_ids"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Status = raw.Status
	r.SyncedIDs = raw.SyncedIDs
	if r.SyncedIDs == nil {
		r.SyncedIDs = raw.SyncedIDs2
	}
	return nil
}

// Credentials is what a successful login hands back to the terminal.
type Credentials struct {
	Token    string
	UserName string
	Role     string
}
