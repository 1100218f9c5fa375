package sales

import (
	"kasir-sync/internal/models"

	"github.com/shopspring/decimal"
)

// ActivePrice is the unit price charged for qty of p. A manual price always wins;
// otherwise the wholesale price applies from the threshold up. A threshold of zero
// disables wholesale pricing.
func ActivePrice(p models.Product, qty int, manual *decimal.Decimal) decimal.Decimal {
	if manual != nil {
		return *manual
	}
	if p.WholesaleThreshold > 0 && qty >= p.WholesaleThreshold {
		return p.WholesalePrice
	}
	return p.SellPrice
}

// LineTotal is ActivePrice times qty.
func LineTotal(p models.Product, qty int, manual *decimal.Decimal) decimal.Decimal {
	return ActivePrice(p, qty, manual).Mul(decimal.NewFromInt(int64(qty)))
}
