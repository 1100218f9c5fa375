package store

import (
	"context"
	"fmt"

	"kasir-sync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleOptions tunes SaveSale.
type SaleOptions struct {
	// StrictStock rejects the whole sale when a decrement would take stock below zero.
	StrictStock bool
}

// SaveSale writes a transaction, its items and the stock decrements they imply as
// one database transaction. All rows are left dirty. Nothing is written on error.
func (s *Store) SaveSale(ctx context.Context, txn *models.Transaction, items []models.TransactionItem, decrements map[string]int, opts SaleOptions) error {
	unlock := s.lock(models.KindProduct, models.KindTransaction, models.KindTransactionItem)
	defer unlock()

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn.UpdatedAt = now
		txn.Synced = false
		if err := tx.Omit(clause.Associations).Create(txn).Error; err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		for i := range items {
			items[i].TransactionID = txn.ID
			items[i].UpdatedAt = now
			items[i].Synced = false
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("insert items: %w", err)
			}
		}

		for _, id := range sortedKeys(decrements) {
			qty := decrements[id]
			q := tx.Model(&models.Product{}).Where("id = ?", id)
			if opts.StrictStock {
				q = q.Where("stock >= ?", qty)
			}
			res := q.Updates(map[string]any{
				"stock":      gorm.Expr("stock - ?", qty),
				"synced":     false,
				"updated_at": now,
			})
			if res.Error != nil {
				return fmt.Errorf("decrement stock of %s: %w", id, res.Error)
			}
			if res.RowsAffected == 0 {
				var n int64
				if err := tx.Model(&models.Product{}).Where("id = ?", id).Count(&n).Error; err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("product %s: %w", id, ErrNotFound)
				}
				return fmt.Errorf("product %s: %w", id, ErrInsufficientStock)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	txn.Items = items
	s.Products.publish(ctx)
	s.Transactions.publish(ctx)
	s.Items.publish(ctx)
	return nil
}

// ItemsFor loads the items of the given transactions, grouped by transaction id.
func (s *Store) ItemsFor(ctx context.Context, transactionIDs []string) (map[string][]models.TransactionItem, error) {
	out := make(map[string][]models.TransactionItem, len(transactionIDs))
	if len(transactionIDs) == 0 {
		return out, nil
	}
	unlock := s.lock(models.KindTransactionItem)
	defer unlock()

	var items []models.TransactionItem
	err := s.db.WithContext(ctx).
		Where("transaction_id IN ?", transactionIDs).
		Order("transaction_id asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("items for transactions: %w", err)
	}
	for _, it := range items {
		out[it.TransactionID] = append(out[it.TransactionID], it)
	}
	return out, nil
}

// UpsertTransactions replaces transactions and their items by id in one database
// transaction. Rows are stored exactly as given, synced flag included.
func (s *Store) UpsertTransactions(ctx context.Context, txns []models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	unlock := s.lock(models.KindTransaction, models.KindTransactionItem)
	defer unlock()

	var items []models.TransactionItem
	for _, t := range txns {
		for _, it := range t.Items {
			it.TransactionID = t.ID
			items = append(items, it)
		}
	}

	upsert := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(upsert).Omit(clause.Associations).Create(&txns).Error; err != nil {
			return fmt.Errorf("upsert transactions: %w", err)
		}
		if len(items) > 0 {
			if err := tx.Clauses(upsert).Create(&items).Error; err != nil {
				return fmt.Errorf("upsert items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Transactions.publish(ctx)
	s.Items.publish(ctx)
	return nil
}

// TransactionsWithItems lists transactions newest first with their items loaded.
func (s *Store) TransactionsWithItems(ctx context.Context, limit int) ([]models.Transaction, error) {
	unlock := s.lock(models.KindTransaction, models.KindTransactionItem)
	defer unlock()

	q := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Order("date desc, id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	out := make([]models.Transaction, 0)
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}
