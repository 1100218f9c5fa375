package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"kasir-sync/internal/models"
	"kasir-sync/internal/store"
	"kasir-sync/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id, name string, stock int) models.Product {
	return models.Product{
		ID:                 id,
		Name:               name,
		BuyPrice:           decimal.NewFromInt(70),
		SellPrice:          decimal.NewFromInt(100),
		WholesalePrice:     decimal.NewFromInt(80),
		WholesaleThreshold: 10,
		Stock:              stock,
		Category:           "snack",
	}
}

func ids[E store.Record](rows []E) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.RecordID())
	}
	return out
}

func TestUpsertAllIsIdempotentByID(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	batch := []models.Product{product("p1", "Kopi", 5), product("p2", "Teh", 3)}
	require.NoError(t, s.Products.UpsertAll(ctx, batch))
	require.NoError(t, s.Products.UpsertAll(ctx, batch))

	n, err := s.Products.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	changed := product("p1", "Kopi Susu", 9)
	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{changed}))
	got, err := s.Products.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Kopi Susu", got.Name)
	assert.Equal(t, 9, got.Stock)
	assert.True(t, got.SellPrice.Equal(decimal.NewFromInt(100)))
}

func TestDirtySetExactness(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{
		product("a", "A", 1), product("b", "B", 1), product("c", "C", 1),
	}))
	dirty, err := s.Products.GetDirty(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids(dirty))

	require.NoError(t, s.Products.MarkSynced(ctx, []string{"a", "b", "c", "unknown"}))
	dirty, err = s.Products.GetDirty(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)

	require.NoError(t, s.Products.Update(ctx, "b", map[string]any{"name": "B2"}))
	dirty, err = s.Products.GetDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(dirty))
}

func TestUpdateBumpsVersionAndRejectsUnknownID(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	p := product("p1", "Kopi", 5)
	p.Synced = true
	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{p}))
	before, err := s.Products.Get(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, s.Products.Update(ctx, "p1", map[string]any{"sell_price": decimal.NewFromInt(120), "synced": true}))
	after, err := s.Products.Get(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, after.Synced, "update must always leave the row dirty")
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, after.SellPrice.Equal(decimal.NewFromInt(120)))

	err = s.Products.Update(ctx, "missing", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMarkPushedKeepsRowsWrittenDuringPush(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{product("a", "A", 1), product("b", "B", 1)}))
	pushed, err := s.Products.GetDirty(ctx)
	require.NoError(t, err)

	// b is edited while its push is in flight
	require.NoError(t, s.Products.Update(ctx, "b", map[string]any{"stock": 0}))

	acks := make([]store.Ack, 0, len(pushed))
	for _, p := range pushed {
		acks = append(acks, store.Ack{ID: p.ID, Version: p.Version()})
	}
	marked, err := s.Products.MarkPushed(ctx, acks)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)

	dirty, err := s.Products.GetDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(dirty))
}

func TestGetAllOrdering(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{
		product("1", "Susu", 1), product("2", "Air", 1), product("3", "Mie", 1),
	}))
	all, err := s.Products.GetAll(ctx)
	require.NoError(t, err)
	names := []string{all[0].Name, all[1].Name, all[2].Name}
	assert.Equal(t, []string{"Air", "Mie", "Susu"}, names)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertTransactions(ctx, []models.Transaction{
		{ID: "old", CashierName: "ani", Date: base, PaymentMethod: models.PaymentCash},
		{ID: "new", CashierName: "ani", Date: base.Add(time.Hour), PaymentMethod: models.PaymentCash},
	}))
	txs, err := s.Transactions.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids(txs))
}

func TestDeleteIsUnconditional(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{product("p1", "Kopi", 1)}))
	require.NoError(t, s.Products.Delete(ctx, "p1"))
	require.NoError(t, s.Products.Delete(ctx, "p1"))

	_, err := s.Products.Get(ctx, "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	dirty, err := s.Products.GetDirty(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty, "deletes leave no tombstone behind")
}

func TestSaveSaleWritesEverythingDirty(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)

	p1, p2 := product("p1", "Kopi", 10), product("p2", "Teh", 5)
	p1.Synced, p2.Synced = true, true
	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{p1, p2}))

	txn := &models.Transaction{ID: "t1", CashierName: "ani", Date: time.Now().UTC(), PaymentMethod: models.PaymentCash}
	items := []models.TransactionItem{
		{ID: "i1", ProductID: "p1", ProductName: "Kopi", Quantity: 3, PriceSnapshot: decimal.NewFromInt(100), Subtotal: decimal.NewFromInt(300)},
		{ID: "i2", ProductID: "p2", ProductName: "Teh", Quantity: 1, PriceSnapshot: decimal.NewFromInt(100), Subtotal: decimal.NewFromInt(100)},
	}
	require.NoError(t, s.SaveSale(ctx, txn, items, map[string]int{"p1": 3, "p2": 1}, store.SaleOptions{}))

	got1, err := s.Products.Get(ctx, "p1")
	require.NoError(t, err)
	got2, err := s.Products.Get(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, 7, got1.Stock)
	assert.Equal(t, 4, got2.Stock)
	assert.False(t, got1.Synced)
	assert.False(t, got2.Synced)

	byTx, err := s.ItemsFor(ctx, []string{"t1"})
	require.NoError(t, err)
	assert.Len(t, byTx["t1"], 2)

	counts, err := s.DirtyCounts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.KindTransaction])
	assert.EqualValues(t, 2, counts[models.KindTransactionItem])
	assert.EqualValues(t, 2, counts[models.KindProduct])
}

func TestSaveSaleRollsBackOnUnknownProduct(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{product("p1", "Kopi", 10)}))

	txn := &models.Transaction{ID: "t1", CashierName: "ani", Date: time.Now().UTC(), PaymentMethod: models.PaymentCash}
	items := []models.TransactionItem{
		{ID: "i1", ProductID: "p1", ProductName: "Kopi", Quantity: 1},
		{ID: "i2", ProductID: "ghost", ProductName: "Ghost", Quantity: 1},
	}
	err := s.SaveSale(ctx, txn, items, map[string]int{"p1": 1, "ghost": 1}, store.SaleOptions{})
	require.ErrorIs(t, err, store.ErrNotFound)

	n, err := s.Transactions.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = s.Items.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "no orphan items without their transaction")
	got, err := s.Products.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)
}

func TestSaveSaleStrictStock(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{product("p1", "Kopi", 2)}))

	txn := &models.Transaction{ID: "t1", CashierName: "ani", Date: time.Now().UTC(), PaymentMethod: models.PaymentCash}
	items := []models.TransactionItem{{ID: "i1", ProductID: "p1", ProductName: "Kopi", Quantity: 3}}

	err := s.SaveSale(ctx, txn, items, map[string]int{"p1": 3}, store.SaleOptions{StrictStock: true})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	txn2 := &models.Transaction{ID: "t2", CashierName: "ani", Date: time.Now().UTC(), PaymentMethod: models.PaymentCash}
	items2 := []models.TransactionItem{{ID: "i2", ProductID: "p1", ProductName: "Kopi", Quantity: 3}}
	require.NoError(t, s.SaveSale(ctx, txn2, items2, map[string]int{"p1": 3}, store.SaleOptions{}))
	got, err := s.Products.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, -1, got.Stock)
}

func TestSubscribeDeliversSnapshotThenUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := storetest.New(t)
	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{product("p1", "Kopi", 1)}))

	ch, err := s.Products.Subscribe(ctx)
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, []string{"p1"}, ids(first))

	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{product("p2", "Air", 1)}))
	select {
	case next := <-ch:
		assert.Equal(t, []string{"p2", "p1"}, ids(next))
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after write")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, open := <-ch:
			return !open
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSlowSubscriberSeesLatestSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := storetest.New(t)

	ch, err := s.Suppliers.Subscribe(ctx)
	require.NoError(t, err)
	<-ch

	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, s.Suppliers.UpsertAll(ctx, []models.Supplier{{ID: id, Name: id}}))
	}
	latest := <-ch
	assert.Len(t, latest, 3)
}

func TestConcurrentUpdatesAreSerialised(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	require.NoError(t, s.Products.UpsertAll(ctx, []models.Product{product("p1", "Kopi", 0)}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Products.Update(ctx, "p1", map[string]any{"stock": i}))
		}(i)
	}
	wg.Wait()

	got, err := s.Products.Get(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, got.Synced)
	assert.GreaterOrEqual(t, got.Stock, 0)
}

func TestClockIsStrictlyIncreasing(t *testing.T) {
	c := store.NewClock()
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		next := c.Now()
		require.True(t, next.After(prev))
		prev = next
	}
}
