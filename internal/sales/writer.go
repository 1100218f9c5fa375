// Package sales turns a cart into a durable local sale.
package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kasir-sync/internal/models"
	"kasir-sync/internal/obs"
	"kasir-sync/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart           = errors.New("sale has no items")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrInvalidAmount       = errors.New("amounts must not be negative")
	ErrInsufficientPayment = errors.New("amount paid is less than total minus discount")
)

// SyncRequester is told that there is new local data to push.
type SyncRequester interface {
	Request()
}

type CartLine struct {
	ProductID   string           `json:"product_id"`
	Quantity    int              `json:"quantity"`
	ManualPrice *decimal.Decimal `json:"manual_price,omitempty"`
	Unit        string           `json:"unit,omitempty"`
}

// Sale is what the checkout screen hands over. A zero Total is computed from the lines.
type Sale struct {
	Total         decimal.Decimal `json:"total"`
	Cashier       string          `json:"cashier"`
	Items         []CartLine      `json:"items"`
	PaymentMethod string          `json:"payment_method"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	ChangeAmount  decimal.Decimal `json:"change_amount"`
	Discount      decimal.Decimal `json:"discount"`
}

type Options struct {
	// StrictStock refuses sales that would take a product below zero.
	StrictStock bool
}

// Writer records sales. It never touches the network.
type Writer struct {
	store *store.Store
	sync  SyncRequester
	opts  Options
	now   func() time.Time
}

// NewWriter returns a Writer. sync may be nil.
func NewWriter(s *store.Store, sync SyncRequester, opts Options) *Writer {
	return &Writer{
		store: s,
		sync:  sync,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// RecordSale validates the sale, writes the transaction, its items and the stock
// decrements in one durable step, then asks for a sync pass. It returns the new
// transaction id.
func (w *Writer) RecordSale(ctx context.Context, sale Sale) (string, error) {
	if len(sale.Items) == 0 {
		return "", ErrEmptyCart
	}
	if sale.Discount.IsNegative() || sale.AmountPaid.IsNegative() || sale.Total.IsNegative() || sale.ChangeAmount.IsNegative() {
		return "", ErrInvalidAmount
	}

	txnID := uuid.NewString()
	items := make([]models.TransactionItem, 0, len(sale.Items))
	decrements := make(map[string]int, len(sale.Items))
	computed := decimal.Zero

	for i, line := range sale.Items {
		if line.Quantity <= 0 {
			return "", fmt.Errorf("line %d: %w", i+1, ErrInvalidQuantity)
		}
		if line.ManualPrice != nil && line.ManualPrice.IsNegative() {
			return "", fmt.Errorf("line %d: %w", i+1, ErrInvalidAmount)
		}
		p, err := w.store.Products.Get(ctx, line.ProductID)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}

		price := ActivePrice(p, line.Quantity, line.ManualPrice)
		subtotal := LineTotal(p, line.Quantity, line.ManualPrice)
		unit := strings.TrimSpace(line.Unit)
		if unit == "" {
			unit = models.DefaultUnit
		}
		items = append(items, models.TransactionItem{
			ID:            uuid.NewString(),
			TransactionID: txnID,
			ProductID:     p.ID,
			ProductName:   p.Name,
			Quantity:      line.Quantity,
			Unit:          unit,
			PriceSnapshot: price,
			Subtotal:      subtotal,
		})
		decrements[p.ID] += line.Quantity
		computed = computed.Add(subtotal)
	}

	total := sale.Total
	if total.IsZero() {
		total = computed
	}
	due := total.Sub(sale.Discount)
	if sale.AmountPaid.LessThan(due) {
		return "", fmt.Errorf("paid %s, due %s: %w", sale.AmountPaid, due, ErrInsufficientPayment)
	}
	change := sale.ChangeAmount
	if change.IsZero() {
		change = sale.AmountPaid.Sub(due)
	}

	txn := &models.Transaction{
		ID:            txnID,
		TotalAmount:   total,
		CashierName:   strings.TrimSpace(sale.Cashier),
		Date:          w.now(),
		PaymentMethod: NormalizePaymentMethod(sale.PaymentMethod),
		AmountPaid:    sale.AmountPaid,
		ChangeAmount:  change,
		Discount:      sale.Discount,
	}
	if err := w.store.SaveSale(ctx, txn, items, decrements, store.SaleOptions{StrictStock: w.opts.StrictStock}); err != nil {
		return "", fmt.Errorf("record sale: %w", err)
	}

	obs.Logger.Info("sale_recorded",
		"transaction_id", txnID,
		"items", len(items),
		"total", total.String(),
		"payment_method", txn.PaymentMethod,
	)
	if w.sync != nil {
		w.sync.Request()
	}
	return txnID, nil
}

// NormalizePaymentMethod upper-cases the method; empty means cash.
func NormalizePaymentMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if m == "" {
		return models.PaymentCash
	}
	return m
}
