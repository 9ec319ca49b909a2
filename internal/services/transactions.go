package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"fingestor/internal/amqp"
	"fingestor/internal/billing"
	"fingestor/internal/core"
	"fingestor/internal/storage"
)

// SortKey selects the ordering of a transaction list.
type SortKey string

const (
	SortByDescription SortKey = "description"
	SortByAmount      SortKey = "amount"
	SortByDueDate     SortKey = "due_date"
	SortByStatus      SortKey = "status"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortByDescription, SortByAmount, SortByDueDate, SortByStatus:
		return true
	}
	return false
}

// TransactionQuery filters and orders ListTransactions. The zero value
// lists everything by due date, newest first.
type TransactionQuery struct {
	Status    core.Status
	CardID    int64
	AccountID int64
	SortBy    SortKey
	Ascending bool
}

// TransactionView is a transaction with the names of what it references.
type TransactionView struct {
	core.Transaction
	CategoryName string `json:"category_name,omitempty"`
	AccountName  string `json:"account_name,omitempty"`
	CardName     string `json:"card_name,omitempty"`
}

// TransactionList is the result of ListTransactions.
type TransactionList struct {
	Items     []TransactionView `json:"items"`
	Count     int               `json:"count"`
	SortBy    SortKey           `json:"sort_by"`
	Ascending bool              `json:"ascending"`
}

// missingReference turns a failed lookup of a referenced entity into a
// ValidationError on field.
func missingReference(field string, id int64, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NewValidationError(field, fmt.Errorf("%d: %w", id, core.ErrNotFound))
	}
	return err
}

// CreateEntry records an income or expense that is already settled. Its
// date is also its due date.
func (s *FinanceService) CreateEntry(ctx context.Context, in core.EntryInput) (core.Transaction, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.Transaction{}, err
	}

	cat, err := s.store.GetCategory(ctx, in.CategoryID)
	if err != nil {
		return core.Transaction{}, missingReference("category_id", in.CategoryID, err)
	}
	if cat.Kind != in.Kind {
		return core.Transaction{}, core.NewValidationError("category_id",
			fmt.Errorf("category %q is for %s, not %s", cat.Name, cat.Kind, in.Kind))
	}
	if _, err := s.store.GetAccount(ctx, in.AccountID); err != nil {
		return core.Transaction{}, missingReference("account_id", in.AccountID, err)
	}

	categoryID, accountID := in.CategoryID, in.AccountID
	tx := core.Transaction{
		Description: strings.TrimSpace(in.Description),
		Kind:        in.Kind,
		Amount:      core.RoundMoney(in.Amount),
		Date:        in.Date.Time,
		DueDate:     in.Date.Time,
		Status:      core.StatusPaid,
		CategoryID:  &categoryID,
		AccountID:   &accountID,
	}

	saved, err := s.store.CreateTransactions(ctx, []core.Transaction{tx})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save entry: %w", err)
	}
	s.publish(ctx, amqp.ActionUpsert, saved[0].ID)
	return saved[0], nil
}

// RegisterPurchase splits a card purchase into its installments and stores
// them all at once.
func (s *FinanceService) RegisterPurchase(ctx context.Context, in core.PurchaseInput) ([]core.Transaction, error) {
	if err := core.ValidateInput(in); err != nil {
		return nil, err
	}

	card, err := s.store.GetCard(ctx, in.CardID)
	if err != nil {
		return nil, missingReference("card_id", in.CardID, err)
	}
	cat, err := s.store.GetCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, missingReference("category_id", in.CategoryID, err)
	}
	if cat.Kind != core.KindExpense {
		return nil, core.NewValidationError("category_id",
			fmt.Errorf("category %q is not an expense category", cat.Name))
	}

	groupID := ""
	if in.Installments > 1 {
		groupID = s.newGroupID()
	}

	txs, err := billing.Schedule(billing.Purchase{
		Description: strings.TrimSpace(in.Description),
		Total:       core.RoundMoney(in.Total),
		Count:       in.Installments,
		Date:        in.Date.Time,
		ClosingDay:  card.ClosingDay,
		DueDay:      card.DueDay,
		CardID:      card.ID,
		CategoryID:  cat.ID,
	}, groupID)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.CreateTransactions(ctx, txs)
	if err != nil {
		return nil, fmt.Errorf("save purchase: %w", err)
	}

	ids := make([]int64, len(saved))
	for i, t := range saved {
		ids[i] = t.ID
	}
	s.publish(ctx, amqp.ActionUpsert, ids...)
	return saved, nil
}

// MarkPaid settles a single transaction.
func (s *FinanceService) MarkPaid(ctx context.Context, id int64) (core.Transaction, error) {
	if err := s.store.MarkTransactionPaid(ctx, id); err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.ActionUpsert, id)
	return s.store.GetTransaction(ctx, id)
}

// DeleteTransaction removes a transaction, cascading over the later
// installments of its group. It returns how many records were removed.
func (s *FinanceService) DeleteTransaction(ctx context.Context, id int64) (int, error) {
	ids, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, amqp.ActionDelete, ids...)
	return len(ids), nil
}

// ListTransactions returns the matching transactions, decorated and sorted.
func (s *FinanceService) ListTransactions(ctx context.Context, q TransactionQuery) (TransactionList, error) {
	if q.SortBy == "" {
		q.SortBy = SortByDueDate
	}
	if !q.SortBy.Valid() {
		return TransactionList{}, core.NewValidationError("sort",
			fmt.Errorf("unknown sort key %q", q.SortBy))
	}
	if q.Status != "" && !q.Status.Valid() {
		return TransactionList{}, core.NewValidationError("status", core.ErrInvalidStatus)
	}

	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return TransactionList{}, err
	}
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{
		Status:    q.Status,
		CardID:    q.CardID,
		AccountID: q.AccountID,
	})
	if err != nil {
		return TransactionList{}, err
	}

	names := snap.names()
	items := make([]TransactionView, len(txs))
	for i, t := range txs {
		items[i] = names.view(t)
	}
	sortTransactions(items, q.SortBy, q.Ascending)

	return TransactionList{
		Items:     items,
		Count:     len(items),
		SortBy:    q.SortBy,
		Ascending: q.Ascending,
	}, nil
}

func sortTransactions(items []TransactionView, key SortKey, ascending bool) {
	compare := func(a, b TransactionView) int {
		switch key {
		case SortByDescription:
			return strings.Compare(strings.ToLower(a.Description), strings.ToLower(b.Description))
		case SortByAmount:
			return a.Amount.Cmp(b.Amount)
		case SortByStatus:
			return strings.Compare(strings.ToLower(string(a.Status)), strings.ToLower(string(b.Status)))
		default:
			return a.DueDate.Compare(b.DueDate)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		c := compare(items[i], items[j])
		if c == 0 {
			return items[i].ID < items[j].ID
		}
		if ascending {
			return c < 0
		}
		return c > 0
	})
}
