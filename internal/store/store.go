// Package store is the terminal's durable Entity Store: one table per synchronised
// kind, each row carrying a synced flag that marks it clean or dirty.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"kasir-sync/internal/database"
	"kasir-sync/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Store owns every persisted row on the terminal.
type Store struct {
	db    *gorm.DB
	clock *Clock
	locks map[models.Kind]*sync.Mutex

	Products     *Table[models.Product]
	Transactions *Table[models.Transaction]
	Items        *Table[models.TransactionItem]
	Suppliers    *Table[models.Supplier]
	Purchases    *Table[models.Purchase]
}

// New migrates the synchronised kinds on db and returns a Store over them.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(database.SyncModels()...); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}

	s := &Store{
		db:    db,
		clock: NewClock(),
		locks: make(map[models.Kind]*sync.Mutex, len(models.LockOrder)),
	}
	for _, k := range models.LockOrder {
		s.locks[k] = &sync.Mutex{}
	}

	s.Products = newTable[models.Product](s, models.KindProduct, "name asc, id asc")
	s.Transactions = newTable[models.Transaction](s, models.KindTransaction, "date desc, id asc")
	s.Items = newTable[models.TransactionItem](s, models.KindTransactionItem, "transaction_id asc, id asc")
	s.Suppliers = newTable[models.Supplier](s, models.KindSupplier, "name asc, id asc")
	s.Purchases = newTable[models.Purchase](s, models.KindPurchase, "date desc, id asc")
	return s, nil
}

// Now returns the store's monotonic write timestamp.
func (s *Store) Now() time.Time { return s.clock.Now() }

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// lock takes the per-kind mutexes in LockOrder and returns the matching unlock.
func (s *Store) lock(kinds ...models.Kind) func() {
	want := make(map[models.Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	held := make([]*sync.Mutex, 0, len(kinds))
	for _, k := range models.LockOrder {
		if want[k] {
			m := s.locks[k]
			m.Lock()
			held = append(held, m)
		}
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// DirtyCounts reports how many rows of each kind still wait for the server.
func (s *Store) DirtyCounts(ctx context.Context) (map[models.Kind]int64, error) {
	out := make(map[models.Kind]int64, 5)
	counters := []struct {
		kind models.Kind
		fn   func(context.Context) (int64, error)
	}{
		{models.KindProduct, s.Products.CountDirty},
		{models.KindTransaction, s.Transactions.CountDirty},
		{models.KindTransactionItem, s.Items.CountDirty},
		{models.KindSupplier, s.Suppliers.CountDirty},
		{models.KindPurchase, s.Purchases.CountDirty},
	}
	for _, c := range counters {
		n, err := c.fn(ctx)
		if err != nil {
			return nil, err
		}
		out[c.kind] = n
	}
	return out, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
