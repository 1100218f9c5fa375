package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"kasir-sync/internal/models"
	"kasir-sync/internal/obs"
	"kasir-sync/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var ErrInvalidSpreadsheet = errors.New("invalid spreadsheet")

// Price list columns, in order. Only the name is required.
const (
	colName = iota
	colCategory
	colBuy
	colSell
	colWholesale
	colThreshold
	colStock
	colBarcode
)

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportReport struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// ImportProducts reads the first sheet of an .xlsx price list. A row whose
// barcode matches an existing product overwrites that product; every other row
// becomes a new one. All imported products are left dirty.
func (s *Service) ImportProducts(ctx context.Context, r io.Reader) (ImportReport, error) {
	report := ImportReport{Errors: []RowError{}}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return report, fmt.Errorf("%w: no sheets", ErrInvalidSpreadsheet)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}

	start := 0
	if len(rows) > 0 && isHeader(rows[0]) {
		start = 1
	}

	batch := make([]models.Product, 0, len(rows))
	seenBarcodes := map[string]int{}
	for i := start; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]
		if blank(row) {
			continue
		}

		p, err := parseRow(row)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, RowError{Row: rowNo, Message: err.Error()})
			continue
		}

		p.ID = uuid.NewString()
		if p.Barcode != nil {
			if prev, dup := seenBarcodes[*p.Barcode]; dup {
				report.Skipped++
				report.Errors = append(report.Errors, RowError{Row: rowNo, Message: fmt.Sprintf("barcode %s repeats row %d", *p.Barcode, prev)})
				continue
			}
			seenBarcodes[*p.Barcode] = rowNo

			existing, err := s.store.Products.FindOne(ctx, "barcode", *p.Barcode)
			switch {
			case err == nil:
				p.ID = existing.ID
			case !errors.Is(err, store.ErrNotFound):
				return report, err
			}
		}
		p.UpdatedAt = s.store.Now()
		batch = append(batch, p)
	}

	if err := s.store.Products.UpsertAll(ctx, batch); err != nil {
		return report, err
	}
	report.Imported = len(batch)
	obs.Logger.Info("products_imported", "imported", report.Imported, "skipped", report.Skipped)
	if report.Imported > 0 {
		s.requestSync()
	}
	return report, nil
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimSpace(row[0]))
	for _, word := range []string{"NAME", "NAMA", "PRODUCT", "PRODUK"} {
		if strings.Contains(first, word) {
			return true
		}
	}
	return false
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseRow(row []string) (models.Product, error) {
	p := models.Product{
		Name:     cell(row, colName),
		Category: cell(row, colCategory),
	}
	if p.Name == "" {
		return p, errors.New("name is empty")
	}

	var err error
	if p.BuyPrice, err = parseMoney(cell(row, colBuy)); err != nil {
		return p, fmt.Errorf("buy price: %w", err)
	}
	if p.SellPrice, err = parseMoney(cell(row, colSell)); err != nil {
		return p, fmt.Errorf("sell price: %w", err)
	}
	if p.WholesalePrice, err = parseMoney(cell(row, colWholesale)); err != nil {
		return p, fmt.Errorf("wholesale price: %w", err)
	}
	if p.WholesaleThreshold, err = parseCount(cell(row, colThreshold)); err != nil {
		return p, fmt.Errorf("wholesale threshold: %w", err)
	}
	if p.Stock, err = parseCount(cell(row, colStock)); err != nil {
		return p, fmt.Errorf("stock: %w", err)
	}
	if code := cell(row, colBarcode); code != "" {
		p.Barcode = &code
	}
	if err := validateProduct(ProductInput{
		Name:               p.Name,
		BuyPrice:           p.BuyPrice,
		SellPrice:          p.SellPrice,
		WholesalePrice:     p.WholesalePrice,
		WholesaleThreshold: p.WholesaleThreshold,
	}); err != nil {
		return p, err
	}
	return p, nil
}

var moneyCleaner = strings.NewReplacer("Rp", "", "rp", "", "RP", "", " ", "")

// parseMoney reads Rupiah amounts: "12500", "Rp 12.500", "1.250.000",
// "12,500", "12.500,50" and "12500.50". Dots and commas followed by exactly
// three digits group thousands; a single separator followed by one or two
// digits is the decimal mark. Empty means zero.
func parseMoney(s string) (decimal.Decimal, error) {
	s = moneyCleaner.Replace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	intPart, frac := s, ""
	if last := strings.LastIndexAny(s, ".,"); last >= 0 {
		if tail := s[last+1:]; len(tail) != 3 {
			if len(tail) == 0 || len(tail) > 2 {
				return decimal.Decimal{}, fmt.Errorf("ambiguous amount %q", s)
			}
			intPart, frac = s[:last], tail
		}
	}
	digits, err := ungroup(intPart)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", s, err)
	}
	if frac != "" {
		digits += "." + frac
	}
	return decimal.NewFromString(digits)
}

// ungroup strips thousands separators. Every group after the first must have
// exactly three digits.
func ungroup(s string) (string, error) {
	groups := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
	if len(groups) != strings.Count(s, ".")+strings.Count(s, ",")+1 {
		return "", errors.New("misplaced separator")
	}
	if len(groups) > 1 && len(groups[0]) > 3 {
		return "", errors.New("thousands groups must have three digits")
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", errors.New("thousands groups must have three digits")
		}
	}
	return strings.Join(groups, ""), nil
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
