package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kasir-sync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is satisfied by every synchronised model.
type Record interface {
	RecordID() string
	Version() time.Time
}

// Ack pins an acknowledged id to the row version that was actually pushed.
type Ack struct {
	ID      string
	Version time.Time
}

// Table is the per-kind contract of the Entity Store.
type Table[E Record] struct {
	s     *Store
	kind  models.Kind
	order string
	hub   *hub[E]
}

func newTable[E Record](s *Store, kind models.Kind, order string) *Table[E] {
	return &Table[E]{s: s, kind: kind, order: order, hub: newHub[E]()}
}

func (t *Table[E]) Kind() models.Kind { return t.kind }

func (t *Table[E]) db(ctx context.Context) *gorm.DB {
	return t.s.db.WithContext(ctx)
}

// UpsertAll inserts or replaces records by id. Replaying the same batch is a no-op.
func (t *Table[E]) UpsertAll(ctx context.Context, records []E) error {
	if len(records) == 0 {
		return nil
	}
	unlock := t.s.lock(t.kind)
	defer unlock()

	err := t.db(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Omit(clause.Associations).
		Create(&records).Error
	if err != nil {
		return fmt.Errorf("upsert %s: %w", t.kind, err)
	}
	t.publish(ctx)
	return nil
}

// GetDirty returns every row not yet acknowledged by the server.
func (t *Table[E]) GetDirty(ctx context.Context) ([]E, error) {
	unlock := t.s.lock(t.kind)
	defer unlock()

	var out []E
	if err := t.db(ctx).Where("synced = ?", false).Order("id asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("dirty %s: %w", t.kind, err)
	}
	return out, nil
}

// MarkSynced flags exactly the given ids as clean. Unknown ids are ignored.
func (t *Table[E]) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	unlock := t.s.lock(t.kind)
	defer unlock()

	if err := t.db(ctx).Model(new(E)).Where("id IN ?", ids).Update("synced", true).Error; err != nil {
		return fmt.Errorf("mark %s synced: %w", t.kind, err)
	}
	t.publish(ctx)
	return nil
}

// MarkPushed flags acknowledged rows clean only if they were not written again
// after the pushed snapshot was taken. It returns how many rows became clean.
func (t *Table[E]) MarkPushed(ctx context.Context, acks []Ack) (int64, error) {
	if len(acks) == 0 {
		return 0, nil
	}
	unlock := t.s.lock(t.kind)
	defer unlock()

	var marked int64
	err := t.db(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range acks {
			res := tx.Model(new(E)).
				Where("id = ? AND updated_at = ?", a.ID, a.Version).
				Update("synced", true)
			if res.Error != nil {
				return res.Error
			}
			marked += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark %s pushed: %w", t.kind, err)
	}
	t.publish(ctx)
	return marked, nil
}

// GetAll returns the ordered snapshot of the kind.
func (t *Table[E]) GetAll(ctx context.Context) ([]E, error) {
	unlock := t.s.lock(t.kind)
	defer unlock()
	return t.snapshot(ctx)
}

func (t *Table[E]) snapshot(ctx context.Context) ([]E, error) {
	out := make([]E, 0)
	if err := t.db(ctx).Order(t.order).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", t.kind, err)
	}
	return out, nil
}

// Get loads one row by id.
func (t *Table[E]) Get(ctx context.Context, id string) (E, error) {
	var e E
	err := t.db(ctx).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return e, fmt.Errorf("%s %s: %w", t.kind, id, ErrNotFound)
	}
	if err != nil {
		return e, fmt.Errorf("get %s: %w", t.kind, err)
	}
	return e, nil
}

// FindOne loads the first row whose column equals value, in the kind's order.
func (t *Table[E]) FindOne(ctx context.Context, column string, value any) (E, error) {
	var e E
	err := t.db(ctx).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).Order(t.order).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return e, fmt.Errorf("%s with %s %v: %w", t.kind, column, value, ErrNotFound)
	}
	if err != nil {
		return e, fmt.Errorf("find %s: %w", t.kind, err)
	}
	return e, nil
}

// Update applies column changes to one row, marks it dirty and bumps UpdatedAt.
// Unknown ids return ErrNotFound.
func (t *Table[E]) Update(ctx context.Context, id string, fields map[string]any) error {
	changes := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		switch k {
		case "id", "synced", "updated_at":
			continue
		}
		changes[k] = v
	}
	unlock := t.s.lock(t.kind)
	defer unlock()

	changes["synced"] = false
	changes["updated_at"] = t.s.clock.Now()

	res := t.db(ctx).Model(new(E)).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", t.kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", t.kind, id, ErrNotFound)
	}
	t.publish(ctx)
	return nil
}

// Delete removes the row unconditionally. No tombstone is kept.
func (t *Table[E]) Delete(ctx context.Context, id string) error {
	unlock := t.s.lock(t.kind)
	defer unlock()

	if err := t.db(ctx).Where("id = ?", id).Delete(new(E)).Error; err != nil {
		return fmt.Errorf("delete %s: %w", t.kind, err)
	}
	t.publish(ctx)
	return nil
}

func (t *Table[E]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := t.db(ctx).Model(new(E)).Count(&n).Error
	return n, err
}

func (t *Table[E]) CountDirty(ctx context.Context) (int64, error) {
	var n int64
	err := t.db(ctx).Model(new(E)).Where("synced = ?", false).Count(&n).Error
	return n, err
}

// Subscribe registers a live query. The channel receives the current snapshot
// immediately and a fresh snapshot after every committed write to the kind.
// It is closed when ctx ends.
func (t *Table[E]) Subscribe(ctx context.Context) (<-chan []E, error) {
	unlock := t.s.lock(t.kind)
	defer unlock()

	snap, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return t.hub.add(ctx, snap), nil
}

// publish must run with the kind's lock held so snapshots go out in commit order.
func (t *Table[E]) publish(ctx context.Context) {
	if t.hub.empty() {
		return
	}
	snap, err := t.snapshot(context.WithoutCancel(ctx))
	if err != nil {
		return
	}
	t.hub.broadcast(snap)
}
