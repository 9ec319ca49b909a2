package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"fingestor/internal/sheets"
)

func row(id int64, desc string) sheets.Row {
	return sheets.Row{ID: id, Description: desc, Amount: decimal.NewFromInt(id)}
}

func TestMirrorUpsertDeleteList(t *testing.T) {
	ctx := context.Background()
	m := New()

	for _, r := range []sheets.Row{row(3, "c"), row(1, "a"), row(2, "b")} {
		if err := m.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if err := m.Upsert(ctx, row(2, "b2")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := m.Delete(ctx, 3); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, 42); err != nil {
		t.Fatalf("deleting a missing row should be ignored: %v", err)
	}

	rows, _ := m.List(ctx)
	if len(rows) != 2 || rows[0].ID != 1 || rows[1].Description != "b2" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestMirrorReplaceAll(t *testing.T) {
	ctx := context.Background()
	m := New()
	_ = m.Upsert(ctx, row(9, "old"))

	if err := m.ReplaceAll(ctx, []sheets.Row{row(1, "a"), row(2, "b")}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	rows, _ := m.List(ctx)
	if len(rows) != 2 || rows[0].ID != 1 || rows[1].ID != 2 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
