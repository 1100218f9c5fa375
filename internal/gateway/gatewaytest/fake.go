// Package gatewaytest provides an in-memory Gateway that replaces records by id
// the way the real server does.
package gatewaytest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"kasir-sync/internal/gateway"
	"kasir-sync/internal/models"
)

// Fake is a scriptable in-memory server.
type Fake struct {
	mu sync.Mutex

	products     map[string]models.Product
	suppliers    map[string]models.Supplier
	transactions map[string]models.Transaction
	purchases    map[string]models.Purchase

	pushErr map[models.Kind]error
	pullErr map[models.Kind]error
	dropAck map[models.Kind]bool
	ackOnly map[models.Kind][]string

	// DeleteErr fails DeleteProduct without removing anything.
	DeleteErr error
	// OnPush runs before a pushed batch is stored, without the Fake's lock held.
	OnPush func(kind models.Kind)

	calls []string
}

var _ gateway.Gateway = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		products:     map[string]models.Product{},
		suppliers:    map[string]models.Supplier{},
		transactions: map[string]models.Transaction{},
		purchases:    map[string]models.Purchase{},
		pushErr:      map[models.Kind]error{},
		pullErr:      map[models.Kind]error{},
		dropAck:      map[models.Kind]bool{},
		ackOnly:      map[models.Kind][]string{},
	}
}

// FailPush makes every push of kind fail with a network error before anything is stored.
func (f *Fake) FailPush(kind models.Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushErr[kind] = &gateway.NetworkError{Op: "push " + string(kind), Err: errors.New("connection refused")}
}

// RejectPush makes every push of kind come back with status "error".
func (f *Fake) RejectPush(kind models.Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushErr[kind] = &gateway.RejectionError{Op: "push " + string(kind), Status: "error"}
}

// FailPull makes every pull of kind fail.
func (f *Fake) FailPull(kind models.Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pullErr[kind] = &gateway.NetworkError{Op: "pull " + string(kind), Err: errors.New("timeout")}
}

// DropAck stores pushed records of kind but then reports a network error, as if
// the acknowledgement was lost.
func (f *Fake) DropAck(kind models.Kind, drop bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropAck[kind] = drop
}

// AckOnly limits the acknowledged ids of kind to ids.
func (f *Fake) AckOnly(kind models.Kind, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ackOnly[kind] = ids
}

// Heal clears every scripted failure.
func (f *Fake) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushErr = map[models.Kind]error{}
	f.pullErr = map[models.Kind]error{}
	f.dropAck = map[models.Kind]bool{}
	f.ackOnly = map[models.Kind][]string{}
	f.DeleteErr = nil
}

// Calls lists the gateway operations in the order they happened, e.g. "push product".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// PutProduct seeds or overwrites a server-side product.
func (f *Fake) PutProduct(p models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

func (f *Fake) Product(id string) (models.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	return p, ok
}

func (f *Fake) Transaction(id string) (models.Transaction, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	return t, ok
}

// Len reports how many records of kind the server holds.
func (f *Fake) Len(kind models.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch kind {
	case models.KindProduct:
		return len(f.products)
	case models.KindSupplier:
		return len(f.suppliers)
	case models.KindTransaction:
		return len(f.transactions)
	case models.KindPurchase:
		return len(f.purchases)
	}
	return 0
}

func (f *Fake) PushProducts(_ context.Context, batch []models.Product) (gateway.PushResponse, error) {
	return push(f, models.KindProduct, batch, f.products)
}

func (f *Fake) PushTransactions(_ context.Context, batch []models.Transaction) (gateway.PushResponse, error) {
	return push(f, models.KindTransaction, cloneItems(batch), f.transactions)
}

func (f *Fake) PushSuppliers(_ context.Context, batch []models.Supplier) (gateway.PushResponse, error) {
	return push(f, models.KindSupplier, batch, f.suppliers)
}

func (f *Fake) PushPurchases(_ context.Context, batch []models.Purchase) (gateway.PushResponse, error) {
	return push(f, models.KindPurchase, batch, f.purchases)
}

func (f *Fake) PullProducts(context.Context) ([]models.Product, error) {
	return pull(f, models.KindProduct, f.products)
}

func (f *Fake) PullSuppliers(context.Context) ([]models.Supplier, error) {
	return pull(f, models.KindSupplier, f.suppliers)
}

func (f *Fake) PullTransactions(context.Context) ([]models.Transaction, error) {
	out, err := pull(f, models.KindTransaction, f.transactions)
	return cloneItems(out), err
}

func cloneItems(txns []models.Transaction) []models.Transaction {
	if txns == nil {
		return nil
	}
	out := make([]models.Transaction, len(txns))
	for i, t := range txns {
		t.Items = append([]models.TransactionItem(nil), t.Items...)
		out[i] = t
	}
	return out
}

func (f *Fake) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete product")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.products, id)
	return nil
}

type record interface {
	RecordID() string
}

func push[E record](f *Fake, kind models.Kind, batch []E, into map[string]E) (gateway.PushResponse, error) {
	if hook := f.OnPush; hook != nil {
		hook(kind)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "push "+string(kind))
	if err := f.pushErr[kind]; err != nil {
		return gateway.PushResponse{}, err
	}

	ids := make([]string, 0, len(batch))
	for _, rec := range batch {
		into[rec.RecordID()] = rec
		ids = append(ids, rec.RecordID())
	}
	if f.dropAck[kind] {
		return gateway.PushResponse{}, &gateway.NetworkError{Op: "push " + string(kind), Err: errors.New("connection reset")}
	}
	if only, ok := f.ackOnly[kind]; ok {
		ids = only
	}
	return gateway.PushResponse{Status: gateway.StatusSuccess, SyncedIDs: ids}, nil
}

func pull[E record](f *Fake, kind models.Kind, from map[string]E) ([]E, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "pull "+string(kind))
	if err := f.pullErr[kind]; err != nil {
		return nil, err
	}
	out := make([]E, 0, len(from))
	for _, rec := range from {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID() < out[j].RecordID() })
	return out, nil
}

func (f *Fake) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("fake gateway: %d products, %d suppliers, %d transactions, %d purchases",
		len(f.products), len(f.suppliers), len(f.transactions), len(f.purchases))
}
