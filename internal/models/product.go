package models

import "github.com/shopspring/decimal"

type Product struct {
	ID                 string          `gorm:"primaryKey;size:36" json:"id"`
	Name               string          `gorm:"size:150;not null;index" json:"name"`
	BuyPrice           decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"buy_price"`
	SellPrice          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"sell_price"`
	WholesalePrice     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"wholesale_price"`
	WholesaleThreshold int             `gorm:"not null" json:"wholesale_threshold"` // qty at/above which WholesalePrice applies; 0 disables
	Stock              int             `gorm:"not null" json:"stock"`
	Category           string          `gorm:"size:100" json:"category"`
	Barcode            *string         `gorm:"size:64;index" json:"barcode,omitempty"`
	SyncState
}

func (p Product) RecordID() string { return p.ID }
