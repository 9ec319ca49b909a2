package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fingestor/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ref(id int64) *int64 { return &id }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

type fixture struct {
	account  core.Account
	card     core.Card
	category core.Category
}

func seed(t *testing.T, repo *SQLiteRepository) fixture {
	t.Helper()
	ctx := context.Background()

	a, err := repo.CreateAccount(ctx, core.Account{Name: "Checking", Kind: core.AccountChecking, OpeningBalance: dec("1000")})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	c, err := repo.CreateCard(ctx, core.Card{Name: "Visa", Limit: dec("5000"), ClosingDay: 10, DueDay: 20})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	cat, err := repo.CreateCategory(ctx, core.Category{Name: "Groceries", Kind: core.KindExpense})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	return fixture{account: a, card: c, category: cat}
}

func cardExpense(f fixture, desc, amount string, due time.Time) core.Transaction {
	return core.Transaction{
		Description: desc,
		Kind:        core.KindExpense,
		Amount:      dec(amount),
		Date:        due.AddDate(0, -1, 0),
		DueDate:     due,
		Status:      core.StatusPending,
		CategoryID:  ref(f.category.ID),
		CardID:      ref(f.card.ID),
	}
}

func TestNewSQLiteRepository_Migrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fingestor.db")

	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		if v := repo.SchemaVersion(); v != 1 {
			t.Errorf("open #%d: SchemaVersion() = %d, want 1", i+1, v)
		}
		repo.Close()
	}
}

func TestRepository_AccountCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.CreateAccount(ctx, core.Account{Name: "Wallet", Kind: core.AccountCash, OpeningBalance: dec("12.50")})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if a.ID == 0 {
		t.Fatal("expected an assigned id")
	}

	a.Name = "Pocket"
	if err := repo.UpdateAccount(ctx, a); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	got, err := repo.GetAccount(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Name != "Pocket" || !got.OpeningBalance.Equal(dec("12.50")) || got.Kind != core.AccountCash {
		t.Fatalf("unexpected account %+v", got)
	}

	if err := repo.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := repo.GetAccount(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.UpdateAccount(ctx, a); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating a missing account, got %v", err)
	}
	if err := repo.DeleteAccount(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestRepository_GuardedDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	txs := []core.Transaction{
		cardExpense(f, "Market", "10", date(2024, 6, 20)),
		cardExpense(f, "Bakery", "5", date(2024, 6, 20)),
	}
	if _, err := repo.CreateTransactions(ctx, txs); err != nil {
		t.Fatalf("CreateTransactions: %v", err)
	}

	err := repo.DeleteCategory(ctx, f.category.ID)
	var re *core.ReferentialIntegrityError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReferentialIntegrityError, got %v", err)
	}
	if re.Count != 2 || re.Entity != "category" || re.ID != f.category.ID {
		t.Fatalf("unexpected error details %+v", re)
	}
	if _, err := repo.GetCategory(ctx, f.category.ID); err != nil {
		t.Fatalf("category must survive a refused delete: %v", err)
	}

	if err := repo.DeleteCard(ctx, f.card.ID); !errors.As(err, &re) {
		t.Fatalf("expected card delete to be refused, got %v", err)
	}
	if err := repo.DeleteAccount(ctx, f.account.ID); err != nil {
		t.Fatalf("unreferenced account should delete: %v", err)
	}
}

func TestRepository_CreateTransactions_Atomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	bad := cardExpense(f, "Ghost", "1", date(2024, 7, 20))
	bad.CardID = ref(999)

	_, err := repo.CreateTransactions(ctx, []core.Transaction{
		cardExpense(f, "Real", "1", date(2024, 6, 20)),
		bad,
	})
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "card_id" {
		t.Fatalf("expected card_id ValidationError, got %v", err)
	}

	all, err := repo.ListTransactions(ctx, TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected nothing written, got %d transactions", len(all))
	}
}

func TestRepository_TransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	in := cardExpense(f, "Sofa (2/3)", "80.50", date(2024, 8, 20))
	in.GroupID = "g-1"
	in.Installment = &core.Installment{Index: 2, Count: 3}

	saved, err := repo.CreateTransactions(ctx, []core.Transaction{in})
	if err != nil {
		t.Fatalf("CreateTransactions: %v", err)
	}
	got, err := repo.GetTransaction(ctx, saved[0].ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}

	if got.Description != in.Description || !got.Amount.Equal(in.Amount) {
		t.Errorf("description/amount = %q/%s", got.Description, got.Amount)
	}
	if !got.Date.Equal(in.Date) || !got.DueDate.Equal(in.DueDate) {
		t.Errorf("dates = %v/%v, want %v/%v", got.Date, got.DueDate, in.Date, in.DueDate)
	}
	if got.GroupID != "g-1" || got.Installment == nil || *got.Installment != *in.Installment {
		t.Errorf("group/installment = %q/%+v", got.GroupID, got.Installment)
	}
	if got.AccountID != nil || got.CardID == nil || *got.CardID != f.card.ID {
		t.Errorf("references account=%v card=%v", got.AccountID, got.CardID)
	}
}

func TestRepository_ListTransactions_Filter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	grouped := cardExpense(f, "TV (1/2)", "100", date(2024, 7, 20))
	grouped.GroupID = "tv"
	paid := cardExpense(f, "Paid", "1", date(2024, 5, 20))
	paid.Status = core.StatusPaid
	income := core.Transaction{
		Description: "Salary", Kind: core.KindIncome, Amount: dec("3000"),
		Date: date(2024, 6, 5), DueDate: date(2024, 6, 5), Status: core.StatusPaid,
		AccountID: ref(f.account.ID),
	}
	if _, err := repo.CreateTransactions(ctx, []core.Transaction{
		grouped, paid, income, cardExpense(f, "Late", "2", date(2024, 9, 20)),
	}); err != nil {
		t.Fatalf("CreateTransactions: %v", err)
	}

	tests := []struct {
		name   string
		filter TransactionFilter
		want   []string
	}{
		{"all by due date", TransactionFilter{}, []string{"Paid", "Salary", "TV (1/2)", "Late"}},
		{"pending", TransactionFilter{Status: core.StatusPending}, []string{"TV (1/2)", "Late"}},
		{"card", TransactionFilter{CardID: f.card.ID}, []string{"Paid", "TV (1/2)", "Late"}},
		{"account", TransactionFilter{AccountID: f.account.ID}, []string{"Salary"}},
		{"grouped", TransactionFilter{GroupedOnly: true}, []string{"TV (1/2)"}},
		{"group id", TransactionFilter{GroupID: "tv"}, []string{"TV (1/2)"}},
		{"due range", TransactionFilter{DueFrom: date(2024, 6, 1), DueTo: date(2024, 7, 31)}, []string{"Salary", "TV (1/2)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d transactions, want %v", len(got), tt.want)
			}
			for i, w := range tt.want {
				if got[i].Description != w {
					t.Errorf("position %d = %q, want %q", i, got[i].Description, w)
				}
			}
		})
	}
}

func TestRepository_DeleteTransaction_Cascade(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	var txs []core.Transaction
	for i := 1; i <= 4; i++ {
		tx := cardExpense(f, "Bike", "50", date(2024, time.Month(5+i), 20))
		tx.GroupID = "bike"
		tx.Installment = &core.Installment{Index: i, Count: 4}
		txs = append(txs, tx)
	}
	saved, err := repo.CreateTransactions(ctx, txs)
	if err != nil {
		t.Fatalf("CreateTransactions: %v", err)
	}

	deleted, err := repo.DeleteTransaction(ctx, saved[1].ID)
	if err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	want := []int64{saved[1].ID, saved[2].ID, saved[3].ID}
	if len(deleted) != len(want) {
		t.Fatalf("deleted %v, want %v", deleted, want)
	}
	for i := range want {
		if deleted[i] != want[i] {
			t.Fatalf("deleted %v, want %v", deleted, want)
		}
	}

	left, _ := repo.ListTransactions(ctx, TransactionFilter{GroupID: "bike"})
	if len(left) != 1 || left[0].ID != saved[0].ID {
		t.Fatalf("expected only the first installment to remain, got %+v", left)
	}

	if _, err := repo.DeleteTransaction(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_PayInvoice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	saved, err := repo.CreateTransactions(ctx, []core.Transaction{
		cardExpense(f, "A", "40", date(2024, 6, 20)),
		cardExpense(f, "B", "60", date(2024, 6, 20)),
	})
	if err != nil {
		t.Fatalf("CreateTransactions: %v", err)
	}
	ids := []int64{saved[0].ID, saved[1].ID}

	payment := core.Transaction{
		Description: "Pagamento Fatura Visa", Kind: core.KindExpense, Amount: dec("100"),
		Date: date(2024, 6, 20), DueDate: date(2024, 6, 20), Status: core.StatusPaid,
		CategoryID: ref(core.InvoicePaymentCategoryID), AccountID: ref(f.account.ID),
	}
	got, err := repo.PayInvoice(ctx, payment, ids)
	if err != nil {
		t.Fatalf("PayInvoice: %v", err)
	}
	if got.ID == 0 {
		t.Fatal("payment should have an id")
	}

	pending, _ := repo.ListTransactions(ctx, TransactionFilter{Status: core.StatusPending})
	if len(pending) != 0 {
		t.Fatalf("expected every invoice transaction paid, %d pending", len(pending))
	}

	t.Run("second payment rolls back", func(t *testing.T) {
		_, err := repo.PayInvoice(ctx, payment, ids)
		var ae *core.AtomicityError
		if !errors.As(err, &ae) {
			t.Fatalf("expected AtomicityError, got %v", err)
		}
		all, _ := repo.ListTransactions(ctx, TransactionFilter{})
		if len(all) != 3 {
			t.Fatalf("rolled back payment must not be stored, got %d transactions", len(all))
		}
	})

	t.Run("partially settled set rolls back", func(t *testing.T) {
		more, err := repo.CreateTransactions(ctx, []core.Transaction{cardExpense(f, "C", "5", date(2024, 7, 20))})
		if err != nil {
			t.Fatalf("CreateTransactions: %v", err)
		}
		_, err = repo.PayInvoice(ctx, payment, []int64{more[0].ID, 424242})
		var ae *core.AtomicityError
		if !errors.As(err, &ae) {
			t.Fatalf("expected AtomicityError, got %v", err)
		}
		c, _ := repo.GetTransaction(ctx, more[0].ID)
		if c.Status != core.StatusPending {
			t.Fatalf("transaction must stay pending after rollback, got %s", c.Status)
		}
	})

	t.Run("empty set", func(t *testing.T) {
		_, err := repo.PayInvoice(ctx, payment, nil)
		var ve *core.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestRepository_AddGoalProgress(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	g, err := repo.CreateGoal(ctx, core.Goal{
		Description: "Trip", Target: dec("2000"), Current: dec("100"), TargetDate: date(2025, 12, 1),
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	got, err := repo.AddGoalProgress(ctx, g.ID, dec("250.25"))
	if err != nil {
		t.Fatalf("AddGoalProgress: %v", err)
	}
	if !got.Current.Equal(dec("350.25")) {
		t.Fatalf("Current = %s, want 350.25", got.Current)
	}

	if _, err := repo.AddGoalProgress(ctx, 999, dec("1")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_DumpRestore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	if _, err := repo.CreateTransactions(ctx, []core.Transaction{cardExpense(f, "Market", "10", date(2024, 6, 20))}); err != nil {
		t.Fatalf("CreateTransactions: %v", err)
	}
	if _, err := repo.CreateGoal(ctx, core.Goal{Description: "Car", Target: dec("10"), TargetDate: date(2026, 1, 1)}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	dump, err := repo.Dump(ctx)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	other := newTestRepo(t)
	if _, err := other.CreateAccount(ctx, core.Account{Name: "Old", Kind: core.AccountCash}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := other.Restore(ctx, dump); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	restored, err := other.Dump(ctx)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	for name, n := range dump.Counts() {
		if restored.Counts()[name] != n {
			t.Errorf("%s: restored %d records, want %d", name, restored.Counts()[name], n)
		}
	}
	if restored.Accounts[0].ID != f.account.ID || restored.Accounts[0].Name != "Checking" {
		t.Errorf("account ids must be preserved, got %+v", restored.Accounts)
	}
	tx := restored.Transactions[0]
	if tx.CardID == nil || *tx.CardID != f.card.ID {
		t.Errorf("transaction references must be preserved, got %+v", tx)
	}

	t.Run("failed restore keeps previous data", func(t *testing.T) {
		broken := dump
		broken.Accounts = append([]core.Account{}, dump.Accounts...)
		broken.Accounts = append(broken.Accounts, dump.Accounts[0])

		err := other.Restore(ctx, broken)
		var ae *core.AtomicityError
		if !errors.As(err, &ae) {
			t.Fatalf("expected AtomicityError for duplicate ids, got %v", err)
		}
		after, _ := other.Dump(ctx)
		if len(after.Accounts) != 1 || len(after.Transactions) != 1 {
			t.Fatalf("store changed after failed restore: %+v", after.Counts())
		}
	})

	t.Run("invalid record is rejected before writing", func(t *testing.T) {
		invalid := core.Backup{Accounts: []core.Account{{Name: "", Kind: core.AccountCash}}}
		var me *core.MalformedImportError
		if err := other.Restore(ctx, invalid); !errors.As(err, &me) {
			t.Fatalf("expected MalformedImportError, got %v", err)
		}
	})
}
