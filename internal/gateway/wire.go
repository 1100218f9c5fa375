package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"kasir-sync/internal/models"

	"github.com/shopspring/decimal"
)

var ErrInvalidPayload = errors.New("invalid payload")

// ProductPayload is a product on the wire.
type ProductPayload struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	BuyPrice           decimal.Decimal `json:"buy_price"`
	SellPrice          decimal.Decimal `json:"sell_price"`
	WholesalePrice     decimal.Decimal `json:"wholesale_price"`
	WholesaleThreshold int             `json:"wholesale_threshold"`
	Stock              int             `json:"stock"`
	Category           string          `json:"category"`
	Barcode            *string         `json:"barcode,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (p *ProductPayload) UnmarshalJSON(b []byte) error {
	type plain ProductPayload
	var out plain
	if err := decodeAliased(b, &out); err != nil {
		return err
	}
	*p = ProductPayload(out)
	return nil
}

func (p ProductPayload) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("product without id: %w", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product %s without name: %w", p.ID, ErrInvalidPayload)
	}
	return nil
}

func ProductToWire(m models.Product) ProductPayload {
	return ProductPayload{
		ID:                 m.ID,
		Name:               m.Name,
		BuyPrice:           m.BuyPrice,
		SellPrice:          m.SellPrice,
		WholesalePrice:     m.WholesalePrice,
		WholesaleThreshold: m.WholesaleThreshold,
		Stock:              m.Stock,
		Category:           m.Category,
		Barcode:            m.Barcode,
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

func (p ProductPayload) Model() models.Product {
	return models.Product{
		ID:                 p.ID,
		Name:               p.Name,
		BuyPrice:           p.BuyPrice,
		SellPrice:          p.SellPrice,
		WholesalePrice:     p.WholesalePrice,
		WholesaleThreshold: p.WholesaleThreshold,
		Stock:              p.Stock,
		Category:           p.Category,
		Barcode:            p.Barcode,
		SyncState:          models.SyncState{UpdatedAt: p.UpdatedAt.UTC()},
	}
}

// ItemPayload is a transaction line, only ever sent inside its transaction.
type ItemPayload struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Quantity      int             `json:"quantity"`
	Unit          string          `json:"unit"`
	PriceSnapshot decimal.Decimal `json:"price_snapshot"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

func (p *ItemPayload) UnmarshalJSON(b []byte) error {
	type plain ItemPayload
	var out plain
	if err := decodeAliased(b, &out); err != nil {
		return err
	}
	*p = ItemPayload(out)
	return nil
}

// TransactionPayload carries a transaction and all of its items.
type TransactionPayload struct {
	ID            string          `json:"id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Date          time.Time       `json:"date"`
	CashierName   string          `json:"cashier_name"`
	PaymentMethod string          `json:"payment_method"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	ChangeAmount  decimal.Decimal `json:"change_amount"`
	Discount      decimal.Decimal `json:"discount"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []ItemPayload   `json:"items"`
}

func (p *TransactionPayload) UnmarshalJSON(b []byte) error {
	type plain TransactionPayload
	var out plain
	if err := decodeAliased(b, &out); err != nil {
		return err
	}
	*p = TransactionPayload(out)
	return nil
}

func (p TransactionPayload) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("transaction without id: %w", ErrInvalidPayload)
	}
	for _, it := range p.Items {
		if strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.ProductID) == "" {
			return fmt.Errorf("transaction %s has an item without id or product: %w", p.ID, ErrInvalidPayload)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("transaction %s item %s quantity %d: %w", p.ID, it.ID, it.Quantity, ErrInvalidPayload)
		}
	}
	return nil
}

func TransactionToWire(m models.Transaction) TransactionPayload {
	p := TransactionPayload{
		ID:            m.ID,
		TotalAmount:   m.TotalAmount,
		Date:          m.Date.UTC(),
		CashierName:   m.CashierName,
		PaymentMethod: m.PaymentMethod,
		AmountPaid:    m.AmountPaid,
		ChangeAmount:  m.ChangeAmount,
		Discount:      m.Discount,
		UpdatedAt:     m.UpdatedAt.UTC(),
		Items:         make([]ItemPayload, 0, len(m.Items)),
	}
	if m.DeletedAt != nil {
		d := m.DeletedAt.UTC()
		p.DeletedAt = &d
	}
	for _, it := range m.Items {
		p.Items = append(p.Items, ItemPayload{
			ID:            it.ID,
			ProductID:     it.ProductID,
			ProductName:   it.ProductName,
			Quantity:      it.Quantity,
			Unit:          it.Unit,
			PriceSnapshot: it.PriceSnapshot,
			Subtotal:      it.Subtotal,
		})
	}
	return p
}

// Model converts the payload back into a transaction with its items attached.
// Items inherit the transaction's version.
func (p TransactionPayload) Model() models.Transaction {
	version := models.SyncState{UpdatedAt: p.UpdatedAt.UTC()}
	m := models.Transaction{
		ID:            p.ID,
		TotalAmount:   p.TotalAmount,
		Date:          p.Date.UTC(),
		CashierName:   p.CashierName,
		PaymentMethod: p.PaymentMethod,
		AmountPaid:    p.AmountPaid,
		ChangeAmount:  p.ChangeAmount,
		Discount:      p.Discount,
		SyncState:     version,
		Items:         make([]models.TransactionItem, 0, len(p.Items)),
	}
	if p.DeletedAt != nil {
		d := p.DeletedAt.UTC()
		m.DeletedAt = &d
	}
	for _, it := range p.Items {
		unit := it.Unit
		if unit == "" {
			unit = models.DefaultUnit
		}
		m.Items = append(m.Items, models.TransactionItem{
			ID:            it.ID,
			TransactionID: p.ID,
			ProductID:     it.ProductID,
			ProductName:   it.ProductName,
			Quantity:      it.Quantity,
			Unit:          unit,
			PriceSnapshot: it.PriceSnapshot,
			Subtotal:      it.Subtotal,
			SyncState:     version,
		})
	}
	return m
}

// SupplierPayload is a supplier on the wire.
type SupplierPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *SupplierPayload) UnmarshalJSON(b []byte) error {
	type plain SupplierPayload
	var out plain
	if err := decodeAliased(b, &out); err != nil {
		return err
	}
	*p = SupplierPayload(out)
	return nil
}

func (p SupplierPayload) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("supplier without id: %w", ErrInvalidPayload)
	}
	return nil
}

func SupplierToWire(m models.Supplier) SupplierPayload {
	return SupplierPayload{ID: m.ID, Name: m.Name, Phone: m.Phone, Address: m.Address, UpdatedAt: m.UpdatedAt.UTC()}
}

func (p SupplierPayload) Model() models.Supplier {
	return models.Supplier{
		ID:        p.ID,
		Name:      p.Name,
		Phone:     p.Phone,
		Address:   p.Address,
		SyncState: models.SyncState{UpdatedAt: p.UpdatedAt.UTC()},
	}
}

// PurchasePayload is a purchase on the wire.
type PurchasePayload struct {
	ID         string          `json:"id"`
	SupplierID string          `json:"supplier_id"`
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	Date       time.Time       `json:"date"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (p *PurchasePayload) UnmarshalJSON(b []byte) error {
	type plain PurchasePayload
	var out plain
	if err := decodeAliased(b, &out); err != nil {
		return err
	}
	*p = PurchasePayload(out)
	return nil
}

func (p PurchasePayload) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("purchase without id: %w", ErrInvalidPayload)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("purchase %s quantity %d: %w", p.ID, p.Quantity, ErrInvalidPayload)
	}
	return nil
}

func PurchaseToWire(m models.Purchase) PurchasePayload {
	return PurchasePayload{
		ID:         m.ID,
		SupplierID: m.SupplierID,
		ProductID:  m.ProductID,
		Quantity:   m.Quantity,
		TotalCost:  m.TotalCost,
		Date:       m.Date.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

func (p PurchasePayload) Model() models.Purchase {
	return models.Purchase{
		ID:         p.ID,
		SupplierID: p.SupplierID,
		ProductID:  p.ProductID,
		Quantity:   p.Quantity,
		TotalCost:  p.TotalCost,
		Date:       p.Date.UTC(),
		SyncState:  models.SyncState{UpdatedAt: p.UpdatedAt.UTC()},
	}
}

// decodeAliased decodes a JSON object into v after rewriting camelCase keys to
// snake_case. A snake_case key wins when both spellings are present.
func decodeAliased(b []byte, v any) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	norm := make(map[string]json.RawMessage, len(raw))
	for k, val := range raw {
		if snakeCase(k) == k {
			norm[k] = val
		}
	}
	for k, val := range raw {
		sk := snakeCase(k)
		if _, taken := norm[sk]; !taken {
			norm[sk] = val
		}
	}
	rewritten, err := json.Marshal(norm)
	if err != nil {
		return err
	}
	return json.Unmarshal(rewritten, v)
}

// snakeCase turns totalAmount into total_amount and productID into product_id.
func snakeCase(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := rs[i-1]
				nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
