package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fingestor/internal/amqp"
	"fingestor/internal/core"
	"fingestor/internal/sheets"
	"fingestor/internal/sheets/memory"
	"fingestor/internal/storage"
)

type fakeSource struct {
	txs     map[int64]core.Transaction
	listErr error
}

func (f *fakeSource) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	tx, ok := f.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (f *fakeSource) ListTransactions(_ context.Context, _ storage.TransactionFilter) ([]core.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]core.Transaction, 0, len(f.txs))
	for _, tx := range f.txs {
		out = append(out, tx)
	}
	return out, nil
}

func tx(id int64, desc string, status core.Status) core.Transaction {
	d := time.Date(2024, 6, 20, 0, 0, 0, 0, time.Local)
	return core.Transaction{
		ID: id, Description: desc, Kind: core.KindExpense, Amount: decimal.NewFromInt(10),
		Date: d, DueDate: d, Status: status,
	}
}

func TestSyncWorker_HandleEvent(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{txs: map[int64]core.Transaction{
		1: tx(1, "Market", core.StatusPending),
		2: tx(2, "Rent", core.StatusPaid),
	}}
	mirror := memory.New()
	w := NewSyncWorker(src, mirror)

	for _, id := range []int64{1, 2} {
		if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(id, amqp.ActionUpsert)); err != nil {
			t.Fatalf("upsert %d: %v", id, err)
		}
	}

	paid := src.txs[1]
	paid.Status = core.StatusPaid
	src.txs[1] = paid
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(1, amqp.ActionUpsert)); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(2, amqp.ActionDelete)); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rows, _ := mirror.List(ctx)
	if len(rows) != 1 || rows[0].ID != 1 || rows[0].Status != core.StatusPaid {
		t.Fatalf("unexpected mirror rows %+v", rows)
	}
}

func TestSyncWorker_UpsertMissingTransactionRemovesRow(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	_ = mirror.Upsert(ctx, sheets.RowFromTransaction(tx(5, "Gone", core.StatusPending)))

	w := NewSyncWorker(&fakeSource{txs: map[int64]core.Transaction{}}, mirror)
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(5, amqp.ActionUpsert)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if rows, _ := mirror.List(ctx); len(rows) != 0 {
		t.Fatalf("expected stale row removed, got %+v", rows)
	}
}

func TestSyncWorker_Reconcile(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{txs: map[int64]core.Transaction{
		1: tx(1, "A", core.StatusPending),
		2: tx(2, "B", core.StatusPaid),
	}}
	mirror := memory.New()
	_ = mirror.Upsert(ctx, sheets.RowFromTransaction(tx(9, "stale", core.StatusPaid)))
	w := NewSyncWorker(src, mirror)

	changed, err := w.Reconcile(ctx)
	if err != nil || !changed {
		t.Fatalf("first Reconcile = %v, %v; want changed", changed, err)
	}
	rows, _ := mirror.List(ctx)
	if len(rows) != 2 || rows[0].ID != 1 || rows[1].ID != 2 {
		t.Fatalf("unexpected rows %+v", rows)
	}

	changed, err = w.Reconcile(ctx)
	if err != nil || changed {
		t.Fatalf("second Reconcile = %v, %v; want unchanged", changed, err)
	}

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(0, amqp.ActionRestore)); err != nil {
		t.Fatalf("restore event: %v", err)
	}

	src.listErr = errors.New("disk on fire")
	if _, err := w.Reconcile(ctx); err == nil {
		t.Fatal("expected list error to surface")
	}
}

func TestSyncWorker_UnknownAction(t *testing.T) {
	w := NewSyncWorker(&fakeSource{}, memory.New())
	err := w.HandleEvent(context.Background(), &amqp.TransactionEvent{ID: 1, Action: "archive"})
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}
