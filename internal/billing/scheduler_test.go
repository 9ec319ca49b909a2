package billing

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fingestor/internal/core"
)

func TestSchedule_PurchaseAfterClosing(t *testing.T) {
	p := Purchase{
		Description: "Laptop",
		Total:       dec("300.00"),
		Count:       3,
		Date:        day(2024, 6, 25),
		ClosingDay:  10,
		DueDay:      20,
		CardID:      7,
		CategoryID:  3,
	}

	txs, err := Schedule(p, "group-1")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d installments, want 3", len(txs))
	}

	wantDue := []time.Time{day(2024, 7, 20), day(2024, 8, 20), day(2024, 9, 20)}
	for i, tx := range txs {
		if !tx.DueDate.Equal(wantDue[i]) {
			t.Errorf("installment %d due %v, want %v", i+1, tx.DueDate, wantDue[i])
		}
		if want := fmt.Sprintf("Laptop (%d/3)", i+1); tx.Description != want {
			t.Errorf("installment %d description %q, want %q", i+1, tx.Description, want)
		}
		if !tx.Amount.Equal(dec("100")) {
			t.Errorf("installment %d amount %s", i+1, tx.Amount)
		}
		if tx.GroupID != "group-1" {
			t.Errorf("installment %d group %q", i+1, tx.GroupID)
		}
		if tx.Installment == nil || tx.Installment.Index != i+1 || tx.Installment.Count != 3 {
			t.Errorf("installment %d position %+v", i+1, tx.Installment)
		}
		if tx.Status != core.StatusPending || tx.Kind != core.KindExpense {
			t.Errorf("installment %d status/kind %s/%s", i+1, tx.Status, tx.Kind)
		}
		if !tx.Date.Equal(p.Date) {
			t.Errorf("installment %d date %v, want purchase date", i+1, tx.Date)
		}
		if tx.CardID == nil || *tx.CardID != 7 || tx.CategoryID == nil || *tx.CategoryID != 3 {
			t.Errorf("installment %d references card=%v category=%v", i+1, tx.CardID, tx.CategoryID)
		}
	}
}

func TestFirstDueDate(t *testing.T) {
	tests := []struct {
		purchase time.Time
		closing  int
		due      int
		want     time.Time
	}{
		{day(2024, 6, 5), 10, 20, day(2024, 6, 20)},
		{day(2024, 6, 10), 10, 20, day(2024, 6, 20)},
		{day(2024, 6, 11), 10, 20, day(2024, 7, 20)},
		{day(2024, 12, 25), 10, 20, day(2025, 1, 20)},
		{day(2024, 1, 31), 30, 31, day(2024, 2, 29)},
	}
	for _, tt := range tests {
		if got := FirstDueDate(tt.purchase, tt.closing, tt.due); !got.Equal(tt.want) {
			t.Errorf("FirstDueDate(%v, %d, %d) = %v, want %v", tt.purchase, tt.closing, tt.due, got, tt.want)
		}
	}
}

func TestSchedule_SingleInstallment(t *testing.T) {
	txs, err := Schedule(Purchase{
		Description: "Book", Total: dec("45.90"), Count: 1,
		Date: day(2024, 6, 5), ClosingDay: 10, DueDay: 20, CardID: 1, CategoryID: 1,
	}, "")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions", len(txs))
	}
	tx := txs[0]
	if tx.Description != "Book" || tx.GroupID != "" || tx.Installment != nil {
		t.Fatalf("single purchase should be a plain transaction, got %+v", tx)
	}
	if !tx.Amount.Equal(dec("45.90")) || !tx.DueDate.Equal(day(2024, 6, 20)) {
		t.Fatalf("unexpected amount/due %s %v", tx.Amount, tx.DueDate)
	}
}

func TestSchedule_MonthlyDueDates(t *testing.T) {
	for _, count := range []int{2, 5, 12, 24} {
		for _, due := range []int{1, 15, 28, 29, 30, 31} {
			txs, err := Schedule(Purchase{
				Description: "x", Total: dec("1000"), Count: count,
				Date: day(2024, 1, 31), ClosingDay: 5, DueDay: due, CardID: 1, CategoryID: 1,
			}, "g")
			if err != nil {
				t.Fatalf("Schedule: %v", err)
			}
			if len(txs) != count {
				t.Fatalf("count=%d: got %d transactions", count, len(txs))
			}
			for i := 1; i < len(txs); i++ {
				prev, cur := txs[i-1].DueDate, txs[i].DueDate
				if !cur.After(prev) {
					t.Fatalf("count=%d due=%d: due dates not increasing at %d", count, due, i)
				}
				prevMonth := prev.Year()*12 + int(prev.Month())
				curMonth := cur.Year()*12 + int(cur.Month())
				if curMonth-prevMonth != 1 {
					t.Fatalf("count=%d due=%d: %v -> %v is not one calendar month", count, due, prev, cur)
				}
				if cur.Day() != due && cur.Day() != DayInMonth(cur.Year(), cur.Month(), 31, time.UTC).Day() {
					t.Fatalf("count=%d due=%d: %v drifted from the due day", count, due, cur)
				}
			}
		}
	}
}

func TestSchedule_RoundingDrift(t *testing.T) {
	totals := []string{"100", "200", "0.10", "999.99", "1234.57", "10"}
	for _, total := range totals {
		for count := 1; count <= 13; count++ {
			txs, err := Schedule(Purchase{
				Description: "x", Total: dec(total), Count: count,
				Date: day(2024, 3, 1), ClosingDay: 10, DueDay: 20, CardID: 1, CategoryID: 1,
			}, "g")
			if err != nil {
				t.Fatalf("Schedule: %v", err)
			}
			sum := core.SumAmounts(txs)
			drift := sum.Sub(dec(total)).Abs()
			limit := decimal.NewFromInt(int64(count)).Mul(dec("0.01"))
			if drift.GreaterThan(limit) {
				t.Fatalf("total=%s count=%d: sum %s drifts %s (> %s)", total, count, sum, drift, limit)
			}
		}
	}

	txs, _ := Schedule(Purchase{
		Description: "x", Total: dec("100"), Count: 3,
		Date: day(2024, 3, 1), ClosingDay: 10, DueDay: 20, CardID: 1, CategoryID: 1,
	}, "g")
	if got := core.SumAmounts(txs); !got.Equal(dec("99.99")) {
		t.Fatalf("100 in 3 should sum to 99.99, got %s", got)
	}
}

func TestSchedule_Errors(t *testing.T) {
	base := Purchase{
		Description: "x", Total: dec("10"), Count: 2,
		Date: day(2024, 3, 1), ClosingDay: 10, DueDay: 20, CardID: 1, CategoryID: 1,
	}

	tests := []struct {
		name   string
		mutate func(*Purchase)
		field  string
	}{
		{"zero count", func(p *Purchase) { p.Count = 0 }, "installments"},
		{"empty description", func(p *Purchase) { p.Description = "  " }, "description"},
		{"negative total", func(p *Purchase) { p.Total = dec("-1") }, "total"},
		{"closing day", func(p *Purchase) { p.ClosingDay = 32 }, "closing_day"},
		{"due day", func(p *Purchase) { p.DueDay = 0 }, "due_day"},
		{"zero date", func(p *Purchase) { p.Date = time.Time{} }, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			_, err := Schedule(p, "g")
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}

	t.Run("missing group id", func(t *testing.T) {
		if _, err := Schedule(base, ""); err == nil {
			t.Fatal("expected error without a group id")
		}
	})
}
