package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fingestor/internal/core"
)

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	items, err := r.queries.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return r.queries.GetTransaction(ctx, id)
}

// checkReferences makes sure every entity t points at exists. The invoice
// payment category is virtual and always accepted.
func checkReferences(ctx context.Context, q *Queries, t core.Transaction) error {
	if t.CategoryID != nil && *t.CategoryID != core.InvoicePaymentCategoryID {
		if _, err := q.GetCategory(ctx, *t.CategoryID); err != nil {
			return referenceError("category_id", *t.CategoryID, err)
		}
	}
	if t.AccountID != nil {
		if _, err := q.GetAccount(ctx, *t.AccountID); err != nil {
			return referenceError("account_id", *t.AccountID, err)
		}
	}
	if t.CardID != nil {
		if _, err := q.GetCard(ctx, *t.CardID); err != nil {
			return referenceError("card_id", *t.CardID, err)
		}
	}
	return nil
}

func referenceError(field string, id int64, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NewValidationError(field, fmt.Errorf("%d: %w", id, core.ErrNotFound))
	}
	return err
}

// CreateTransactions inserts all of txs or none of them.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	saved := make([]core.Transaction, 0, len(txs))
	err := r.inTx(ctx, "create transactions", func(q *Queries) error {
		for _, t := range txs {
			if err := t.Validate(); err != nil {
				return err
			}
			if err := checkReferences(ctx, q, t); err != nil {
				return err
			}
			id, err := q.InsertTransaction(ctx, t)
			if err != nil {
				return fmt.Errorf("insert transaction %q: %w", t.Description, err)
			}
			t.ID = id
			saved = append(saved, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range saved {
		slog.InfoContext(ctx, "Transaction saved",
			"id", t.ID,
			"description", t.Description,
			"amount", core.FormatMoney(t.Amount),
			"due_date", t.DueDate.Format("2006-01-02"),
			"status", t.Status)
	}
	return saved, nil
}

// MarkTransactionPaid flags a single transaction as paid. Paying an already
// paid transaction is a no-op.
func (r *SQLiteRepository) MarkTransactionPaid(ctx context.Context, id int64) error {
	return r.inTx(ctx, "mark paid", func(q *Queries) error {
		if _, err := q.GetTransaction(ctx, id); err != nil {
			return err
		}
		_, err := q.MarkPaid(ctx, []int64{id})
		return err
	})
}

// DeleteTransaction removes a transaction. When it belongs to an
// installment group, the members due on or after it go too. The removed ids
// are returned in due order.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) ([]int64, error) {
	var deleted []int64
	err := r.inTx(ctx, "delete transaction", func(q *Queries) error {
		t, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		ids := []int64{id}
		if t.GroupID != "" {
			ids, err = q.GroupMembersFrom(ctx, t.GroupID, t.DueDate)
			if err != nil {
				return fmt.Errorf("list group members: %w", err)
			}
		}

		n, err := q.DeleteTransactions(ctx, ids)
		if err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		if int(n) != len(ids) {
			return fmt.Errorf("deleted %d of %d transactions", n, len(ids))
		}
		deleted = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transactions deleted", "id", id, "count", len(deleted))
	return deleted, nil
}

// PayInvoice records payment and flags every transaction in ids as paid in
// one transaction. If any of them is missing or no longer pending nothing
// is written.
func (r *SQLiteRepository) PayInvoice(ctx context.Context, payment core.Transaction, ids []int64) (core.Transaction, error) {
	if len(ids) == 0 {
		return payment, core.NewValidationError("transactions", fmt.Errorf("no transactions to settle"))
	}

	err := r.inTx(ctx, "pay invoice", func(q *Queries) error {
		if err := payment.Validate(); err != nil {
			return err
		}
		if err := checkReferences(ctx, q, payment); err != nil {
			return err
		}
		id, err := q.InsertTransaction(ctx, payment)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		payment.ID = id

		n, err := q.MarkPaid(ctx, ids)
		if err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}
		if int(n) != len(ids) {
			return fmt.Errorf("settled %d of %d invoice transactions", n, len(ids))
		}
		return nil
	})
	if err != nil {
		return payment, err
	}

	slog.InfoContext(ctx, "Invoice paid",
		"payment_id", payment.ID,
		"amount", core.FormatMoney(payment.Amount),
		"settled", len(ids))
	return payment, nil
}
