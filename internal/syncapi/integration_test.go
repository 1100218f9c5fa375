package syncapi_test

import (
	"context"
	"net"
	"testing"
	"time"

	"kasir-sync/internal/gateway"
	"kasir-sync/internal/inventory"
	"kasir-sync/internal/models"
	"kasir-sync/internal/reconcile"
	"kasir-sync/internal/sales"
	"kasir-sync/internal/session"
	"kasir-sync/internal/store"
	"kasir-sync/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T, s *server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() { _ = s.app.Shutdown() })
	return "http://" + ln.Addr().String() + "/api"
}

type pos struct {
	store *store.Store
	sess  *session.Session
	sync  *reconcile.Reconciler
	inv   *inventory.Service
	sales *sales.Writer
}

func newPOS(t *testing.T, baseURL string) *pos {
	t.Helper()
	st := storetest.New(t)
	sess := session.New()
	client := gateway.NewClient(baseURL, 5*time.Second, sess)
	_, err := sess.Login(context.Background(), client, "owner@example.com", "password123")
	require.NoError(t, err)
	return &pos{
		store: st,
		sess:  sess,
		sync:  reconcile.New(st, client),
		inv:   inventory.NewService(st, client, nil),
		sales: sales.NewWriter(st, nil, sales.Options{}),
	}
}

func TestTerminalsConvergeThroughServer(t *testing.T) {
	ctx := context.Background()
	s := newServer(t)
	url := listen(t, s)

	a := newPOS(t, url)
	p, err := a.inv.CreateProduct(ctx, inventory.ProductInput{
		Name:               "Indomie",
		SellPrice:          decimal.NewFromInt(3500),
		WholesalePrice:     decimal.NewFromInt(3000),
		WholesaleThreshold: 10,
		Stock:              40,
	})
	require.NoError(t, err)
	txnID, err := a.sales.RecordSale(ctx, sales.Sale{
		Cashier:    "Ani",
		Items:      []sales.CartLine{{ProductID: p.ID, Quantity: 12}},
		AmountPaid: decimal.NewFromInt(40000),
	})
	require.NoError(t, err)

	res := a.sync.SyncOnce(ctx)
	require.True(t, res.OK(), "%v", res.Err())

	dirty, err := a.store.DirtyCounts(ctx)
	require.NoError(t, err)
	for kind, n := range dirty {
		assert.Zero(t, n, kind)
	}

	var items []models.TransactionItem
	require.NoError(t, s.db.Where("transaction_id = ?", txnID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, "36000", items[0].Subtotal.String())

	b := newPOS(t, url)
	res = b.sync.SyncOnce(ctx)
	require.True(t, res.OK(), "%v", res.Err())

	got, err := b.store.Products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 28, got.Stock)
	assert.True(t, got.Synced)

	txns, err := b.store.TransactionsWithItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, txnID, txns[0].ID)
	require.Len(t, txns[0].Items, 1)
	assert.Equal(t, 12, txns[0].Items[0].Quantity)
}

func TestRepeatedPushDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newServer(t)
	a := newPOS(t, listen(t, s))

	p, err := a.inv.CreateProduct(ctx, inventory.ProductInput{Name: "Teh", SellPrice: decimal.NewFromInt(2000), Stock: 5})
	require.NoError(t, err)
	require.True(t, a.sync.SyncOnce(ctx).OK())

	stock := 4
	_, err = a.inv.UpdateProduct(ctx, p.ID, inventory.ProductPatch{Stock: &stock})
	require.NoError(t, err)
	require.True(t, a.sync.SyncOnce(ctx).OK())

	var rows []models.Product
	require.NoError(t, s.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].Stock)
}

func TestLoggedOutTerminalKeepsRowsDirty(t *testing.T) {
	ctx := context.Background()
	s := newServer(t)
	a := newPOS(t, listen(t, s))
	a.sess.Logout()

	_, err := a.inv.CreateProduct(ctx, inventory.ProductInput{Name: "Kopi", SellPrice: decimal.NewFromInt(5000)})
	require.NoError(t, err)

	res := a.sync.SyncOnce(ctx)
	assert.Equal(t, reconcile.OutcomeRetryable, res.Outcome())
	assert.ErrorIs(t, res.Err(), session.ErrUnauthenticated)

	n, err := a.store.Products.CountDirty(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRemoteDeleteRemovesServerCopy(t *testing.T) {
	ctx := context.Background()
	s := newServer(t)
	a := newPOS(t, listen(t, s))

	p, err := a.inv.CreateProduct(ctx, inventory.ProductInput{Name: "Gula", SellPrice: decimal.NewFromInt(15000)})
	require.NoError(t, err)
	require.True(t, a.sync.SyncOnce(ctx).OK())

	confirmed, err := a.inv.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, confirmed)

	require.True(t, a.sync.SyncOnce(ctx).OK())
	_, err = a.store.Products.Get(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
