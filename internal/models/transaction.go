package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods known to the terminal. Any other non-empty string is accepted as-is.
const (
	PaymentCash     = "CASH"
	PaymentQRIS     = "QRIS"
	PaymentTransfer = "TRANSFER"
)

// DefaultUnit is used for cart lines that name no unit.
const DefaultUnit = "pcs"

// Transaction is one completed sale. Immutable after creation except for Synced.
type Transaction struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	CashierName   string          `gorm:"size:100;not null" json:"cashier_name"`
	Date          time.Time       `gorm:"index;not null" json:"date"`
	PaymentMethod string          `gorm:"size:20;not null" json:"payment_method"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount_paid"`
	ChangeAmount  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"change_amount"`
	Discount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"discount"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"` // void marker carried on the wire, not a gorm soft delete
	SyncState

	Items []TransactionItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"items"`
}

func (t Transaction) RecordID() string { return t.ID }

// TransactionItem is one cart line of a Transaction. Name and price are snapshots
// taken at sale time so later product edits never alter the receipt.
type TransactionItem struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	TransactionID string          `gorm:"size:36;index;not null" json:"transaction_id"`
	ProductID     string          `gorm:"size:36;index;not null" json:"product_id"`
	ProductName   string          `gorm:"size:150;not null" json:"product_name"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	Unit          string          `gorm:"size:20" json:"unit"`
	PriceSnapshot decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price_snapshot"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	SyncState
}

func (i TransactionItem) RecordID() string { return i.ID }
