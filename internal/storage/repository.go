package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"fingestor/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db            *sql.DB
	queries       *Queries
	schemaVersion uint
}

// DSN builds the connection string for the database file at dbPath.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers; transactions never touch
	// r.queries, which would wait on the connection they hold.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateSchema(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:            db,
		queries:       New(db),
		schemaVersion: version,
	}, nil
}

// SchemaVersion is the migration the database was at once opened.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// inTx runs fn inside a transaction. Domain errors come back unchanged,
// anything else is reported as an AtomicityError for op.
func (r *SQLiteRepository) inTx(ctx context.Context, op string, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &core.AtomicityError{Op: op, Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		if core.IsDomainError(err) {
			return err
		}
		slog.ErrorContext(ctx, "Transaction rolled back", "op", op, "error", err)
		return &core.AtomicityError{Op: op, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &core.AtomicityError{Op: op, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func affected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// deleteGuarded removes a referenced entity unless transactions still point
// at it. Counting and deleting share one transaction.
func (r *SQLiteRepository) deleteGuarded(ctx context.Context, entity, table, column string, id int64) error {
	err := r.inTx(ctx, "delete "+entity, func(q *Queries) error {
		n, err := q.CountReferences(ctx, column, id)
		if err != nil {
			return fmt.Errorf("count references: %w", err)
		}
		if n > 0 {
			return &core.ReferentialIntegrityError{Entity: entity, ID: id, Count: n}
		}
		return affected(q.DeleteByID(ctx, table, id))
	})
	if err == nil {
		slog.InfoContext(ctx, "Record deleted", "entity", entity, "id", id)
	}
	return err
}

// --- accounts ---

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	items, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return r.queries.GetAccount(ctx, id)
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	id, err := r.queries.InsertAccount(ctx, a)
	if err != nil {
		return a, fmt.Errorf("create account: %w", err)
	}
	a.ID = id
	slog.InfoContext(ctx, "Account saved", "id", id, "name", a.Name, "kind", a.Kind)
	return a, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	return affected(r.queries.UpdateAccount(ctx, a))
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	return r.deleteGuarded(ctx, "account", "accounts", refAccount, id)
}

// --- cards ---

func (r *SQLiteRepository) ListCards(ctx context.Context) ([]core.Card, error) {
	items, err := r.queries.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) GetCard(ctx context.Context, id int64) (core.Card, error) {
	return r.queries.GetCard(ctx, id)
}

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card) (core.Card, error) {
	id, err := r.queries.InsertCard(ctx, c)
	if err != nil {
		return c, fmt.Errorf("create card: %w", err)
	}
	c.ID = id
	slog.InfoContext(ctx, "Card saved", "id", id, "name", c.Name,
		"closing_day", c.ClosingDay, "due_day", c.DueDay)
	return c, nil
}

func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.Card) error {
	return affected(r.queries.UpdateCard(ctx, c))
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, id int64) error {
	return r.deleteGuarded(ctx, "card", "cards", refCard, id)
}

// --- categories ---

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	items, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return r.queries.GetCategory(ctx, id)
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := r.queries.InsertCategory(ctx, c)
	if err != nil {
		return c, fmt.Errorf("create category: %w", err)
	}
	c.ID = id
	slog.InfoContext(ctx, "Category saved", "id", id, "name", c.Name, "kind", c.Kind)
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	return affected(r.queries.UpdateCategory(ctx, c))
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	return r.deleteGuarded(ctx, "category", "categories", refCategory, id)
}

// --- goals ---

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	items, err := r.queries.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	return r.queries.GetGoal(ctx, id)
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	id, err := r.queries.InsertGoal(ctx, g)
	if err != nil {
		return g, fmt.Errorf("create goal: %w", err)
	}
	g.ID = id
	slog.InfoContext(ctx, "Goal saved", "id", id, "description", g.Description)
	return g, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) error {
	return affected(r.queries.UpdateGoal(ctx, g))
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id int64) error {
	return affected(r.queries.DeleteByID(ctx, "goals", id))
}

// AddGoalProgress adds amount to the goal's current value.
func (r *SQLiteRepository) AddGoalProgress(ctx context.Context, id int64, amount decimal.Decimal) (core.Goal, error) {
	var goal core.Goal
	err := r.inTx(ctx, "add goal progress", func(q *Queries) error {
		g, err := q.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		g.Current = g.Current.Add(amount)
		if err := affected(q.UpdateGoal(ctx, g)); err != nil {
			return err
		}
		goal = g
		return nil
	})
	return goal, err
}
