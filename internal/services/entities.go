package services

import (
	"context"
	"fmt"

	"fingestor/internal/core"
	"fingestor/internal/storage"
)

// --- accounts ---

// Accounts lists every account with its derived balance.
func (s *FinanceService) Accounts(ctx context.Context) ([]core.AccountBalance, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{Status: core.StatusPaid})
	if err != nil {
		return nil, err
	}
	out := make([]core.AccountBalance, len(accounts))
	for i, a := range accounts {
		out[i] = core.AccountBalance{Account: a, Balance: AccountBalance(a, txs)}
	}
	return out, nil
}

func (s *FinanceService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *FinanceService) CreateAccount(ctx context.Context, in core.AccountInput) (core.Account, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.Account{}, err
	}
	a := in.Account(0)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	return s.store.CreateAccount(ctx, a)
}

func (s *FinanceService) UpdateAccount(ctx context.Context, id int64, in core.AccountInput) (core.Account, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.Account{}, err
	}
	a := in.Account(id)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("update account %d: %w", id, err)
	}
	return a, nil
}

func (s *FinanceService) DeleteAccount(ctx context.Context, id int64) error {
	return s.store.DeleteAccount(ctx, id)
}

// --- cards ---

func (s *FinanceService) ListCards(ctx context.Context) ([]core.Card, error) {
	return s.store.ListCards(ctx)
}

func (s *FinanceService) GetCard(ctx context.Context, id int64) (core.Card, error) {
	return s.store.GetCard(ctx, id)
}

func (s *FinanceService) CreateCard(ctx context.Context, in core.CardInput) (core.Card, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.Card{}, err
	}
	c := in.Card(0)
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	return s.store.CreateCard(ctx, c)
}

func (s *FinanceService) UpdateCard(ctx context.Context, id int64, in core.CardInput) (core.Card, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.Card{}, err
	}
	c := in.Card(id)
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	if err := s.store.UpdateCard(ctx, c); err != nil {
		return core.Card{}, fmt.Errorf("update card %d: %w", id, err)
	}
	return c, nil
}

func (s *FinanceService) DeleteCard(ctx context.Context, id int64) error {
	return s.store.DeleteCard(ctx, id)
}

// --- categories ---

func (s *FinanceService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *FinanceService) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *FinanceService) CreateCategory(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.Category{}, err
	}
	c := in.Category(0)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.store.CreateCategory(ctx, c)
}

func (s *FinanceService) UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) (core.Category, error) {
	if err := core.ValidateInput(in); err != nil {
		return core.Category{}, err
	}
	c := in.Category(id)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", id, err)
	}
	return c, nil
}

func (s *FinanceService) DeleteCategory(ctx context.Context, id int64) error {
	return s.store.DeleteCategory(ctx, id)
}
