package storage

import (
	"context"
	"fmt"
	"log/slog"

	"fingestor/internal/core"
)

// Dump reads every collection from one consistent snapshot.
func (r *SQLiteRepository) Dump(ctx context.Context) (core.Backup, error) {
	var b core.Backup
	err := r.inTx(ctx, "export", func(q *Queries) error {
		var err error
		if b.Accounts, err = q.ListAccounts(ctx); err != nil {
			return fmt.Errorf("read accounts: %w", err)
		}
		if b.Cards, err = q.ListCards(ctx); err != nil {
			return fmt.Errorf("read cards: %w", err)
		}
		if b.Categories, err = q.ListCategories(ctx); err != nil {
			return fmt.Errorf("read categories: %w", err)
		}
		if b.Transactions, err = q.ListTransactions(ctx, TransactionFilter{}); err != nil {
			return fmt.Errorf("read transactions: %w", err)
		}
		if b.Goals, err = q.ListGoals(ctx); err != nil {
			return fmt.Errorf("read goals: %w", err)
		}
		return nil
	})
	return b, err
}

// Restore replaces the whole store with b, keeping record ids. On failure
// the previous contents stay untouched.
func (r *SQLiteRepository) Restore(ctx context.Context, b core.Backup) error {
	if err := b.Validate(); err != nil {
		return err
	}

	err := r.inTx(ctx, "import", func(q *Queries) error {
		if err := q.ClearAll(ctx); err != nil {
			return err
		}
		for _, a := range b.Accounts {
			if _, err := q.InsertAccount(ctx, a); err != nil {
				return fmt.Errorf("restore account %d: %w", a.ID, err)
			}
		}
		for _, c := range b.Cards {
			if _, err := q.InsertCard(ctx, c); err != nil {
				return fmt.Errorf("restore card %d: %w", c.ID, err)
			}
		}
		for _, c := range b.Categories {
			if _, err := q.InsertCategory(ctx, c); err != nil {
				return fmt.Errorf("restore category %d: %w", c.ID, err)
			}
		}
		for _, t := range b.Transactions {
			if _, err := q.InsertTransaction(ctx, t); err != nil {
				return fmt.Errorf("restore transaction %d: %w", t.ID, err)
			}
		}
		for _, g := range b.Goals {
			if _, err := q.InsertGoal(ctx, g); err != nil {
				return fmt.Errorf("restore goal %d: %w", g.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Store restored", "counts", b.Counts())
	return nil
}
