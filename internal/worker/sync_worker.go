package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fingestor/internal/amqp"
	"fingestor/internal/core"
	"fingestor/internal/sheets"
	"fingestor/internal/storage"
)

// TransactionSource is the read side of the store the worker needs.
type TransactionSource interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
}

// SyncWorker keeps a transaction mirror in line with the database.
type SyncWorker struct {
	store  TransactionSource
	mirror sheets.TransactionMirror
}

func NewSyncWorker(store TransactionSource, mirror sheets.TransactionMirror) *SyncWorker {
	return &SyncWorker{
		store:  store,
		mirror: mirror,
	}
}

// HandleEvent applies a single transaction event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"id", msg.ID,
		"action", msg.Action,
		"timestamp", msg.Timestamp)

	switch msg.Action {
	case amqp.ActionUpsert:
		return w.upsert(ctx, msg.ID)
	case amqp.ActionDelete:
		if err := w.mirror.Delete(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete mirror row: %w", err)
		}
		return nil
	case amqp.ActionRestore:
		_, err := w.Reconcile(ctx)
		return err
	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}
}

func (w *SyncWorker) upsert(ctx context.Context, id int64) error {
	tx, err := w.store.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before the event was consumed.
		slog.WarnContext(ctx, "Transaction no longer exists, removing mirror row", "id", id)
		return w.mirror.Delete(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.mirror.Upsert(ctx, sheets.RowFromTransaction(tx)); err != nil {
		return fmt.Errorf("upsert mirror row: %w", err)
	}
	return nil
}

// Reconcile rewrites the mirror when it drifted from the database and
// reports whether anything changed. It backs up lost events.
func (w *SyncWorker) Reconcile(ctx context.Context) (bool, error) {
	txs, err := w.store.ListTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		return false, fmt.Errorf("list transactions: %w", err)
	}
	want := make([]sheets.Row, len(txs))
	for i, tx := range txs {
		want[i] = sheets.RowFromTransaction(tx)
	}

	have, err := w.mirror.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list mirror rows: %w", err)
	}
	if sameRows(want, have) {
		slog.DebugContext(ctx, "Mirror is up to date", "rows", len(have))
		return false, nil
	}

	if err := w.mirror.ReplaceAll(ctx, want); err != nil {
		return false, fmt.Errorf("replace mirror rows: %w", err)
	}
	slog.InfoContext(ctx, "Mirror reconciled", "rows", len(want), "previous_rows", len(have))
	return true, nil
}

// sameRows compares both sides by id, ignoring order.
func sameRows(want, have []sheets.Row) bool {
	if len(want) != len(have) {
		return false
	}
	byID := make(map[int64]sheets.Row, len(have))
	for _, r := range have {
		byID[r.ID] = r
	}
	for _, r := range want {
		h, ok := byID[r.ID]
		if !ok || !h.Equal(r) {
			return false
		}
	}
	return true
}
