package sales_test

import (
	"context"
	"sync/atomic"
	"testing"

	"kasir-sync/internal/models"
	"kasir-sync/internal/sales"
	"kasir-sync/internal/store"
	"kasir-sync/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRequester struct{ n atomic.Int32 }

func (c *countingRequester) Request() { c.n.Add(1) }

func seed(t *testing.T, s *store.Store, id, name string, stock int) {
	t.Helper()
	require.NoError(t, s.Products.UpsertAll(context.Background(), []models.Product{{
		ID:                 id,
		Name:               name,
		SellPrice:          decimal.NewFromInt(100),
		WholesalePrice:     decimal.NewFromInt(80),
		WholesaleThreshold: 10,
		Stock:              stock,
		SyncState:          models.SyncState{Synced: true},
	}}))
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestRecordSaleIsOneDurableStep(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	seed(t, s, "p1", "Teh", 10)
	seed(t, s, "p2", "Kopi", 5)
	req := &countingRequester{}
	w := sales.NewWriter(s, req, sales.Options{})

	id, err := w.RecordSale(ctx, sales.Sale{
		Cashier:       "Sari",
		Items:         []sales.CartLine{{ProductID: "p1", Quantity: 3}, {ProductID: "p2", Quantity: 1}},
		PaymentMethod: "qris",
		AmountPaid:    dec(500),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, int32(1), req.n.Load())

	txn, err := s.Transactions.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, txn.TotalAmount.Equal(dec(400)))
	assert.True(t, txn.ChangeAmount.Equal(dec(100)))
	assert.Equal(t, models.PaymentQRIS, txn.PaymentMethod)
	assert.False(t, txn.Synced)

	items, err := s.ItemsFor(ctx, []string{id})
	require.NoError(t, err)
	require.Len(t, items[id], 2)
	subtotals := map[string]decimal.Decimal{}
	for _, it := range items[id] {
		subtotals[it.ProductID] = it.Subtotal
		assert.False(t, it.Synced)
		assert.Equal(t, models.DefaultUnit, it.Unit)
	}
	assert.True(t, subtotals["p1"].Equal(dec(300)))
	assert.True(t, subtotals["p2"].Equal(dec(100)))

	for id, want := range map[string]int{"p1": 7, "p2": 4} {
		p, err := s.Products.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, p.Stock, id)
		assert.False(t, p.Synced, id)
	}
}

func TestWholesaleSnapshotSurvivesProductEdit(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	seed(t, s, "p1", "Teh", 50)
	w := sales.NewWriter(s, nil, sales.Options{})

	id, err := w.RecordSale(ctx, sales.Sale{
		Items:      []sales.CartLine{{ProductID: "p1", Quantity: 10}},
		AmountPaid: dec(800),
	})
	require.NoError(t, err)
	require.NoError(t, s.Products.Update(ctx, "p1", map[string]any{"name": "Teh Manis", "wholesale_price": dec(60)}))

	items, err := s.ItemsFor(ctx, []string{id})
	require.NoError(t, err)
	require.Len(t, items[id], 1)
	assert.Equal(t, "Teh", items[id][0].ProductName)
	assert.True(t, items[id][0].PriceSnapshot.Equal(dec(80)))
	assert.True(t, items[id][0].Subtotal.Equal(dec(800)))
}

func TestRecordSaleValidation(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	seed(t, s, "p1", "Teh", 10)
	req := &countingRequester{}
	w := sales.NewWriter(s, req, sales.Options{})

	_, err := w.RecordSale(ctx, sales.Sale{AmountPaid: dec(100)})
	assert.ErrorIs(t, err, sales.ErrEmptyCart)

	_, err = w.RecordSale(ctx, sales.Sale{Items: []sales.CartLine{{ProductID: "p1", Quantity: 0}}, AmountPaid: dec(100)})
	assert.ErrorIs(t, err, sales.ErrInvalidQuantity)

	_, err = w.RecordSale(ctx, sales.Sale{Items: []sales.CartLine{{ProductID: "p1", Quantity: 2}}, AmountPaid: dec(150)})
	assert.ErrorIs(t, err, sales.ErrInsufficientPayment)

	_, err = w.RecordSale(ctx, sales.Sale{Items: []sales.CartLine{{ProductID: "missing", Quantity: 1}}, AmountPaid: dec(100)})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Zero(t, req.n.Load())
	n, err := s.Transactions.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDiscountCountsTowardsPayment(t *testing.T) {
	s := storetest.New(t)
	seed(t, s, "p1", "Teh", 10)
	w := sales.NewWriter(s, nil, sales.Options{})

	id, err := w.RecordSale(context.Background(), sales.Sale{
		Total:      dec(200),
		Items:      []sales.CartLine{{ProductID: "p1", Quantity: 2}},
		AmountPaid: dec(150),
		Discount:   dec(50),
	})
	require.NoError(t, err)
	txn, err := s.Transactions.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCash, txn.PaymentMethod)
	assert.True(t, txn.ChangeAmount.IsZero())
}

func TestStrictStockRejectsWholeSale(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	seed(t, s, "p1", "Teh", 10)
	seed(t, s, "p2", "Kopi", 1)
	w := sales.NewWriter(s, nil, sales.Options{StrictStock: true})

	_, err := w.RecordSale(ctx, sales.Sale{
		Items:      []sales.CartLine{{ProductID: "p1", Quantity: 3}, {ProductID: "p2", Quantity: 2}},
		AmountPaid: dec(1000),
	})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	p1, err := s.Products.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, p1.Stock)
	assert.True(t, p1.Synced)
	n, err := s.Items.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLenientStockMayGoNegative(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	seed(t, s, "p1", "Teh", 1)
	w := sales.NewWriter(s, nil, sales.Options{})

	_, err := w.RecordSale(ctx, sales.Sale{
		Items:      []sales.CartLine{{ProductID: "p1", Quantity: 2}, {ProductID: "p1", Quantity: 1, ManualPrice: ptr(dec(50))}},
		AmountPaid: dec(250),
	})
	require.NoError(t, err)
	p1, err := s.Products.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, -2, p1.Stock)
}

func ptr[T any](v T) *T { return &v }

func TestItemSubtotalsMatchLineTotal(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	seed(t, s, "p1", "Teh", 50)
	seed(t, s, "p2", "Kopi", 50)
	w := sales.NewWriter(s, nil, sales.Options{})
	manual := dec(75)

	lines := []sales.CartLine{
		{ProductID: "p1", Quantity: 9},
		{ProductID: "p2", Quantity: 12, ManualPrice: &manual},
	}
	id, err := w.RecordSale(ctx, sales.Sale{Items: lines, AmountPaid: dec(2000)})
	require.NoError(t, err)

	items, err := s.ItemsFor(ctx, []string{id})
	require.NoError(t, err)
	require.Len(t, items[id], 2)
	total := decimal.Zero
	for _, it := range items[id] {
		p, err := s.Products.Get(ctx, it.ProductID)
		require.NoError(t, err)
		var line sales.CartLine
		for _, l := range lines {
			if l.ProductID == it.ProductID {
				line = l
			}
		}
		assert.True(t, it.Subtotal.Equal(sales.LineTotal(p, line.Quantity, line.ManualPrice)), it.ProductID)
		total = total.Add(it.Subtotal)
	}
	assert.True(t, total.Equal(dec(900+900)))

	txn, err := s.Transactions.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, txn.TotalAmount.Equal(total))
}
