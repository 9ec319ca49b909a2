package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"fingestor/internal/core"
)

// Store is the persistence boundary of the finance tracker. Every method
// that writes more than one row does so atomically.
type Store interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, id int64) error

	ListCards(ctx context.Context) ([]core.Card, error)
	GetCard(ctx context.Context, id int64) (core.Card, error)
	CreateCard(ctx context.Context, c core.Card) (core.Card, error)
	UpdateCard(ctx context.Context, c core.Card) error
	DeleteCard(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListGoals(ctx context.Context) ([]core.Goal, error)
	GetGoal(ctx context.Context, id int64) (core.Goal, error)
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) error
	DeleteGoal(ctx context.Context, id int64) error
	AddGoalProgress(ctx context.Context, id int64, amount decimal.Decimal) (core.Goal, error)

	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
	MarkTransactionPaid(ctx context.Context, id int64) error
	DeleteTransaction(ctx context.Context, id int64) ([]int64, error)
	PayInvoice(ctx context.Context, payment core.Transaction, ids []int64) (core.Transaction, error)

	Dump(ctx context.Context) (core.Backup, error)
	Restore(ctx context.Context, b core.Backup) error

	Close() error
}

var _ Store = (*SQLiteRepository)(nil)
