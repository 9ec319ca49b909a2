package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fingestor/internal/billing"
	"fingestor/internal/core"
	"fingestor/internal/storage"
)

const (
	upcomingDays     = 30
	cashFlowMonths   = 6
	uncategorizedTag = "Uncategorized"
)

// Snapshot is every collection of the store, read together.
type Snapshot struct {
	Accounts     []core.Account
	Cards        []core.Card
	Categories   []core.Category
	Transactions []core.Transaction
	Goals        []core.Goal
}

// LoadSnapshot reads the five collections concurrently.
func (s *FinanceService) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.Accounts, err = s.store.ListAccounts(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Cards, err = s.store.ListCards(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Categories, err = s.store.ListCategories(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Transactions, err = s.store.ListTransactions(ctx, storage.TransactionFilter{})
		return err
	})
	g.Go(func() (err error) {
		snap.Goals, err = s.store.ListGoals(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

type nameIndex struct {
	categories map[int64]string
	accounts   map[int64]string
	cards      map[int64]string
}

func (snap Snapshot) names() nameIndex {
	idx := nameIndex{
		categories: make(map[int64]string, len(snap.Categories)),
		accounts:   make(map[int64]string, len(snap.Accounts)),
		cards:      make(map[int64]string, len(snap.Cards)),
	}
	for _, c := range snap.Categories {
		idx.categories[c.ID] = c.Name
	}
	for _, a := range snap.Accounts {
		idx.accounts[a.ID] = a.Name
	}
	for _, c := range snap.Cards {
		idx.cards[c.ID] = c.Name
	}
	return idx
}

func (idx nameIndex) view(t core.Transaction) TransactionView {
	v := TransactionView{Transaction: t}
	if t.CategoryID != nil {
		v.CategoryName = idx.categories[*t.CategoryID]
	}
	if t.AccountID != nil {
		v.AccountName = idx.accounts[*t.AccountID]
	}
	if t.CardID != nil {
		v.CardName = idx.cards[*t.CardID]
	}
	return v
}

// AccountBalance is the opening balance plus paid income minus paid
// expenses booked on the account.
func AccountBalance(a core.Account, txs []core.Transaction) decimal.Decimal {
	balance := a.OpeningBalance
	for _, t := range txs {
		if t.AccountID == nil || *t.AccountID != a.ID || t.Status != core.StatusPaid {
			continue
		}
		switch t.Kind {
		case core.KindIncome:
			balance = balance.Add(t.Amount)
		case core.KindExpense:
			balance = balance.Sub(t.Amount)
		}
	}
	return balance
}

// TotalBalance sums the balances of every account that is not a credit
// account.
func TotalBalance(accounts []core.Account, txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		if a.Kind == core.AccountCredit {
			continue
		}
		total = total.Add(AccountBalance(a, txs))
	}
	return total
}

// Dashboard is the overview of the current month.
type Dashboard struct {
	TotalBalance  decimal.Decimal    `json:"total_balance"`
	MonthIncome   decimal.Decimal    `json:"month_income"`
	MonthExpenses decimal.Decimal    `json:"month_expenses"`
	OpenInvoices  decimal.Decimal    `json:"open_invoices"`
	Upcoming      []core.Transaction `json:"upcoming"`
}

func (s *FinanceService) Dashboard(ctx context.Context) (Dashboard, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(snap, s.now()), nil
}

// BuildDashboard computes the dashboard figures as of now.
func BuildDashboard(snap Snapshot, now time.Time) Dashboard {
	month := billing.MonthWindow(now)
	flow := monthFlow(snap.Transactions, month)

	d := Dashboard{
		TotalBalance:  TotalBalance(snap.Accounts, snap.Transactions),
		MonthIncome:   flow.Income,
		MonthExpenses: flow.Expenses,
		OpenInvoices:  decimal.Zero,
		Upcoming:      []core.Transaction{},
	}

	for _, card := range snap.Cards {
		d.OpenInvoices = d.OpenInvoices.Add(SummarizeCard(card, snap.Transactions, now).Invoice.OpenTotal)
	}

	upcoming := billing.Window{
		Start: billing.StartOfDay(now),
		End:   billing.EndOfDay(now.AddDate(0, 0, upcomingDays)),
	}
	for _, t := range snap.Transactions {
		if t.Status == core.StatusPending && upcoming.Contains(t.DueDate) {
			d.Upcoming = append(d.Upcoming, t)
		}
	}
	sort.SliceStable(d.Upcoming, func(i, j int) bool {
		return d.Upcoming[i].DueDate.Before(d.Upcoming[j].DueDate)
	})
	return d
}

// countsAsSpending excludes invoice payments, whose purchases were already
// counted on their own.
func countsAsSpending(t core.Transaction) bool {
	return t.Kind == core.KindExpense && !t.IsInvoicePayment()
}

func monthFlow(txs []core.Transaction, w billing.Window) core.MonthFlow {
	flow := core.MonthFlow{
		Month:    core.YearMonthOf(w.Start),
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}
	for _, t := range txs {
		if t.Status != core.StatusPaid || !w.Contains(t.DueDate) {
			continue
		}
		switch {
		case t.Kind == core.KindIncome:
			flow.Income = flow.Income.Add(t.Amount)
		case countsAsSpending(t):
			flow.Expenses = flow.Expenses.Add(t.Amount)
		}
	}
	return flow
}

func (s *FinanceService) CashFlow(ctx context.Context) ([]core.MonthFlow, error) {
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{Status: core.StatusPaid})
	if err != nil {
		return nil, err
	}
	return CashFlow(txs, s.now(), cashFlowMonths), nil
}

// CashFlow reports paid income and expenses for the last months calendar
// months up to now, oldest first.
func CashFlow(txs []core.Transaction, now time.Time, months int) []core.MonthFlow {
	out := make([]core.MonthFlow, 0, months)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := months - 1; i >= 0; i-- {
		out = append(out, monthFlow(txs, billing.MonthWindow(first.AddDate(0, -i, 0))))
	}
	return out
}

func (s *FinanceService) ExpensesByCategory(ctx context.Context) ([]core.CategoryAmount, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ExpensesByCategory(snap.Transactions, snap.Categories, s.now()), nil
}

// ExpensesByCategory totals the paid spending of now's month per category,
// largest first.
func ExpensesByCategory(txs []core.Transaction, categories []core.Category, now time.Time) []core.CategoryAmount {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	month := billing.MonthWindow(now)
	totals := map[int64]*core.CategoryAmount{}
	for _, t := range txs {
		if t.Status != core.StatusPaid || !countsAsSpending(t) || !month.Contains(t.DueDate) {
			continue
		}
		var id int64
		if t.CategoryID != nil {
			id = *t.CategoryID
		}
		ca, ok := totals[id]
		if !ok {
			name, known := names[id]
			if !known {
				name = uncategorizedTag
			}
			ca = &core.CategoryAmount{CategoryID: id, Name: name, Amount: decimal.Zero}
			totals[id] = ca
		}
		ca.Amount = ca.Amount.Add(t.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(totals))
	for _, ca := range totals {
		out = append(out, *ca)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DebtProjection groups the pending installments still to be paid.
func (s *FinanceService) DebtProjection(ctx context.Context) ([]billing.DebtProjection, error) {
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{
		Status:      core.StatusPending,
		GroupedOnly: true,
	})
	if err != nil {
		return nil, err
	}
	return billing.ProjectDebts(txs), nil
}
