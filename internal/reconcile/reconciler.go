// Package reconcile runs reconciliation passes: push every dirty kind, then pull
// the server's state over the local store.
package reconcile

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"kasir-sync/internal/gateway"
	"kasir-sync/internal/models"
	"kasir-sync/internal/obs"
	"kasir-sync/internal/store"

	"github.com/google/uuid"
)

// Reconciler holds no state between passes. Callers must not run two passes
// against the same store at once; trigger.Worker provides that guarantee.
type Reconciler struct {
	store *store.Store
	gw    gateway.Gateway
}

func New(s *store.Store, gw gateway.Gateway) *Reconciler {
	return &Reconciler{store: s, gw: gw}
}

// SyncOnce runs one pass. It never returns an error or panics; what happened is
// in the Result.
func (r *Reconciler) SyncOnce(ctx context.Context) (res Result) {
	res = Result{PassID: uuid.NewString(), Started: time.Now().UTC()}
	current := PhaseResult{Phase: PhasePush}

	defer func() {
		if p := recover(); p != nil {
			current.Outcome = OutcomeFatal
			current.Err = fmt.Errorf("panic during %s %s: %v", current.Phase, current.Kind, p)
			res.Phases = append(res.Phases, current)
			obs.Logger.Error("sync_panic", "pass_id", res.PassID, "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
		}
		res.Duration = time.Since(res.Started)
		logPass(res)
	}()

	for _, kind := range models.PushOrder {
		current = PhaseResult{Kind: kind, Phase: PhasePush}
		pr := r.push(ctx, kind)
		res.Phases = append(res.Phases, pr)
		if pr.Outcome == OutcomeFatal {
			return res
		}
	}
	for _, kind := range models.PullOrder {
		current = PhaseResult{Kind: kind, Phase: PhasePull}
		pr := r.pull(ctx, kind)
		res.Phases = append(res.Phases, pr)
		if pr.Outcome == OutcomeFatal {
			return res
		}
	}
	return res
}

func (r *Reconciler) push(ctx context.Context, kind models.Kind) PhaseResult {
	switch kind {
	case models.KindProduct:
		return pushTable(ctx, kind, r.store.Products, r.gw.PushProducts)
	case models.KindSupplier:
		return pushTable(ctx, kind, r.store.Suppliers, r.gw.PushSuppliers)
	case models.KindPurchase:
		return pushTable(ctx, kind, r.store.Purchases, r.gw.PushPurchases)
	case models.KindTransaction:
		return r.pushTransactions(ctx)
	default:
		return PhaseResult{Kind: kind, Phase: PhasePush, Outcome: OutcomeFatal, Err: fmt.Errorf("no push for kind %q", kind)}
	}
}

func pushTable[E store.Record](
	ctx context.Context,
	kind models.Kind,
	table *store.Table[E],
	send func(context.Context, []E) (gateway.PushResponse, error),
) PhaseResult {
	pr := PhaseResult{Kind: kind, Phase: PhasePush}

	dirty, err := table.GetDirty(ctx)
	if err != nil {
		return fatal(pr, err)
	}
	if len(dirty) == 0 {
		pr.Outcome = OutcomeSkipped
		return pr
	}
	pr.Sent = len(dirty)

	resp, err := send(ctx, dirty)
	if err != nil {
		return retryable(pr, err)
	}

	acks := ackedVersions(dirty, resp.SyncedIDs)
	marked, err := table.MarkPushed(ctx, acks)
	if err != nil {
		return fatal(pr, err)
	}
	pr.Acked = len(acks)
	pr.Kept = len(acks) - int(marked)
	pr.Outcome = OutcomeSynced
	return pr
}

// pushTransactions sends every dirty transaction together with all of its items.
// A transaction whose items are dirty while it is not is pushed again as well.
func (r *Reconciler) pushTransactions(ctx context.Context) PhaseResult {
	pr := PhaseResult{Kind: models.KindTransaction, Phase: PhasePush}

	txns, err := r.store.Transactions.GetDirty(ctx)
	if err != nil {
		return fatal(pr, err)
	}
	dirtyItems, err := r.store.Items.GetDirty(ctx)
	if err != nil {
		return fatal(pr, err)
	}

	seen := make(map[string]bool, len(txns))
	for _, t := range txns {
		seen[t.ID] = true
	}
	for _, it := range dirtyItems {
		if seen[it.TransactionID] {
			continue
		}
		parent, err := r.store.Transactions.Get(ctx, it.TransactionID)
		if err != nil {
			return fatal(pr, fmt.Errorf("parent of item %s: %w", it.ID, err))
		}
		seen[parent.ID] = true
		txns = append(txns, parent)
	}
	if len(txns) == 0 {
		pr.Outcome = OutcomeSkipped
		return pr
	}

	ids := make([]string, 0, len(txns))
	for _, t := range txns {
		ids = append(ids, t.ID)
	}
	items, err := r.store.ItemsFor(ctx, ids)
	if err != nil {
		return fatal(pr, err)
	}
	for i := range txns {
		txns[i].Items = items[txns[i].ID]
	}
	pr.Sent = len(txns)

	resp, err := r.gw.PushTransactions(ctx, txns)
	if err != nil {
		return retryable(pr, err)
	}

	acks := ackedVersions(txns, resp.SyncedIDs)
	marked, err := r.store.Transactions.MarkPushed(ctx, acks)
	if err != nil {
		return fatal(pr, err)
	}

	acked := make(map[string]bool, len(acks))
	for _, a := range acks {
		acked[a.ID] = true
	}
	var itemAcks []store.Ack
	for _, t := range txns {
		if !acked[t.ID] {
			continue
		}
		for _, it := range t.Items {
			itemAcks = append(itemAcks, store.Ack{ID: it.ID, Version: it.Version()})
		}
	}
	if _, err := r.store.Items.MarkPushed(ctx, itemAcks); err != nil {
		return fatal(pr, err)
	}

	pr.Acked = len(acks)
	pr.Kept = len(acks) - int(marked)
	pr.Outcome = OutcomeSynced
	return pr
}

func (r *Reconciler) pull(ctx context.Context, kind models.Kind) PhaseResult {
	pr := PhaseResult{Kind: kind, Phase: PhasePull}

	switch kind {
	case models.KindProduct:
		rows, err := r.gw.PullProducts(ctx)
		if err != nil {
			return retryable(pr, err)
		}
		for i := range rows {
			rows[i].Synced = true
		}
		if err := r.store.Products.UpsertAll(ctx, rows); err != nil {
			return fatal(pr, err)
		}
		pr.Pulled = len(rows)
	case models.KindSupplier:
		rows, err := r.gw.PullSuppliers(ctx)
		if err != nil {
			return retryable(pr, err)
		}
		for i := range rows {
			rows[i].Synced = true
		}
		if err := r.store.Suppliers.UpsertAll(ctx, rows); err != nil {
			return fatal(pr, err)
		}
		pr.Pulled = len(rows)
	case models.KindTransaction:
		rows, err := r.gw.PullTransactions(ctx)
		if err != nil {
			return retryable(pr, err)
		}
		for i := range rows {
			rows[i].Synced = true
			for j := range rows[i].Items {
				rows[i].Items[j].Synced = true
			}
		}
		if err := r.store.UpsertTransactions(ctx, rows); err != nil {
			return fatal(pr, err)
		}
		pr.Pulled = len(rows)
	default:
		return fatal(pr, fmt.Errorf("no pull for kind %q", kind))
	}

	pr.Outcome = OutcomeSynced
	return pr
}

// ackedVersions keeps the acknowledged ids that were actually in the batch,
// each pinned to the version that was sent.
func ackedVersions[E store.Record](batch []E, syncedIDs []string) []store.Ack {
	sent := make(map[string]E, len(batch))
	for _, rec := range batch {
		sent[rec.RecordID()] = rec
	}
	acks := make([]store.Ack, 0, len(syncedIDs))
	for _, id := range syncedIDs {
		rec, ok := sent[id]
		if !ok {
			continue
		}
		delete(sent, id)
		acks = append(acks, store.Ack{ID: id, Version: rec.Version()})
	}
	return acks
}

func retryable(pr PhaseResult, err error) PhaseResult {
	pr.Outcome = OutcomeRetryable
	pr.Err = err
	return pr
}

func fatal(pr PhaseResult, err error) PhaseResult {
	pr.Outcome = OutcomeFatal
	pr.Err = err
	return pr
}

func logPass(res Result) {
	for _, p := range res.Phases {
		attrs := []any{
			"pass_id", res.PassID,
			"kind", p.Kind,
			"phase", p.Phase,
			"outcome", p.Outcome.String(),
			"sent", p.Sent,
			"acked", p.Acked,
			"kept", p.Kept,
			"pulled", p.Pulled,
		}
		switch p.Outcome {
		case OutcomeFatal:
			obs.Logger.Error("sync_phase", append(attrs, "err", p.Err)...)
		case OutcomeRetryable:
			obs.Logger.Warn("sync_phase", append(attrs, "err", p.Err)...)
		default:
			obs.Logger.Debug("sync_phase", attrs...)
		}
	}
	obs.Logger.Info("sync_pass",
		"pass_id", res.PassID,
		"outcome", res.Outcome().String(),
		"phases", len(res.Phases),
		"duration_ms", res.Duration.Milliseconds(),
	)
}
