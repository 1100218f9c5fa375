package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase records a restock from a supplier. It does not move Product.Stock.
type Purchase struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	SupplierID string          `gorm:"size:36;index;not null" json:"supplier_id"`
	ProductID  string          `gorm:"size:36;index;not null" json:"product_id"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	TotalCost  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_cost"`
	Date       time.Time       `gorm:"index;not null" json:"date"`
	SyncState
}

func (p Purchase) RecordID() string { return p.ID }
