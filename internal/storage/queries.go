package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fingestor/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL statements of the store, bound to a connection or
// to a running transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TransactionFilter narrows ListTransactions. Zero fields match everything.
type TransactionFilter struct {
	Status      core.Status
	CardID      int64
	AccountID   int64
	GroupID     string
	GroupedOnly bool
	DueFrom     time.Time
	DueTo       time.Time
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

// nullableID stores ids of zero or less as NULL, letting SQLite assign one.
func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func nullableRef(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func refPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// --- accounts ---

const accountColumns = `id, name, kind, opening_balance`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	var kind string
	if err := row.Scan(&a.ID, &a.Name, &kind, &a.OpeningBalance); err != nil {
		return a, err
	}
	a.Kind = core.AccountKind(kind)
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, core.ErrNotFound
	}
	return a, err
}

func (q *Queries) InsertAccount(ctx context.Context, a core.Account) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO accounts (id, name, kind, opening_balance) VALUES (?, ?, ?, ?) RETURNING id`,
		nullableID(a.ID), a.Name, string(a.Kind), a.OpeningBalance,
	).Scan(&id)
	return id, err
}

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, kind = ?, opening_balance = ? WHERE id = ?`,
		a.Name, string(a.Kind), a.OpeningBalance, a.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- cards ---

const cardColumns = `id, name, credit_limit, closing_day, due_day`

func scanCard(row interface{ Scan(...any) error }) (core.Card, error) {
	var c core.Card
	err := row.Scan(&c.ID, &c.Name, &c.Limit, &c.ClosingDay, &c.DueDay)
	return c, err
}

func (q *Queries) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (q *Queries) GetCard(ctx context.Context, id int64) (core.Card, error) {
	c, err := scanCard(q.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, core.ErrNotFound
	}
	return c, err
}

func (q *Queries) InsertCard(ctx context.Context, c core.Card) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO cards (id, name, credit_limit, closing_day, due_day) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		nullableID(c.ID), c.Name, c.Limit, c.ClosingDay, c.DueDay,
	).Scan(&id)
	return id, err
}

func (q *Queries) UpdateCard(ctx context.Context, c core.Card) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE cards SET name = ?, credit_limit = ?, closing_day = ?, due_day = ? WHERE id = ?`,
		c.Name, c.Limit, c.ClosingDay, c.DueDay, c.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- categories ---

const categoryColumns = `id, name, kind, icon`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var kind string
	if err := row.Scan(&c.ID, &c.Name, &kind, &c.Icon); err != nil {
		return c, err
	}
	c.Kind = core.Kind(kind)
	return c, nil
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY kind, name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, core.ErrNotFound
	}
	return c, err
}

func (q *Queries) InsertCategory(ctx context.Context, c core.Category) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO categories (id, name, kind, icon) VALUES (?, ?, ?, ?) RETURNING id`,
		nullableID(c.ID), c.Name, string(c.Kind), c.Icon,
	).Scan(&id)
	return id, err
}

func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, kind = ?, icon = ? WHERE id = ?`,
		c.Name, string(c.Kind), c.Icon, c.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- goals ---

const goalColumns = `id, description, target, current, target_date`

func scanGoal(row interface{ Scan(...any) error }) (core.Goal, error) {
	var g core.Goal
	var targetDate int64
	if err := row.Scan(&g.ID, &g.Description, &g.Target, &g.Current, &targetDate); err != nil {
		return g, err
	}
	g.TargetDate = fromMillis(targetDate)
	return g, nil
}

func (q *Queries) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY target_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

func (q *Queries) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	g, err := scanGoal(q.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return g, core.ErrNotFound
	}
	return g, err
}

func (q *Queries) InsertGoal(ctx context.Context, g core.Goal) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO goals (id, description, target, current, target_date) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		nullableID(g.ID), g.Description, g.Target, g.Current, toMillis(g.TargetDate),
	).Scan(&id)
	return id, err
}

func (q *Queries) UpdateGoal(ctx context.Context, g core.Goal) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE goals SET description = ?, target = ?, current = ?, target_date = ? WHERE id = ?`,
		g.Description, g.Target, g.Current, toMillis(g.TargetDate), g.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- transactions ---

const transactionColumns = `id, description, kind, amount, occurred_at, due_at, status,
	category_id, account_id, card_id, group_id, installment_index, installment_count`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t                     core.Transaction
		kind, status          string
		occurredAt, dueAt     int64
		categoryID, accountID sql.NullInt64
		cardID                sql.NullInt64
		groupID               sql.NullString
		instIndex, instCount  sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Description, &kind, &t.Amount, &occurredAt, &dueAt, &status,
		&categoryID, &accountID, &cardID, &groupID, &instIndex, &instCount)
	if err != nil {
		return t, err
	}
	t.Kind = core.Kind(kind)
	t.Status = core.Status(status)
	t.Date = fromMillis(occurredAt)
	t.DueDate = fromMillis(dueAt)
	t.CategoryID = refPtr(categoryID)
	t.AccountID = refPtr(accountID)
	t.CardID = refPtr(cardID)
	t.GroupID = groupID.String
	if instIndex.Valid && instCount.Valid {
		t.Installment = &core.Installment{Index: int(instIndex.Int64), Count: int(instCount.Int64)}
	}
	return t, nil
}

func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.CardID != 0 {
		where = append(where, "card_id = ?")
		args = append(args, f.CardID)
	}
	if f.AccountID != 0 {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, f.GroupID)
	}
	if f.GroupedOnly {
		where = append(where, "group_id IS NOT NULL AND group_id <> ''")
	}
	if !f.DueFrom.IsZero() {
		where = append(where, "due_at >= ?")
		args = append(args, toMillis(f.DueFrom))
	}
	if !f.DueTo.IsZero() {
		where = append(where, "due_at <= ?")
		args = append(args, toMillis(f.DueTo))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY due_at, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, core.ErrNotFound
	}
	return t, err
}

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	var instIndex, instCount sql.NullInt64
	if t.Installment != nil {
		instIndex = sql.NullInt64{Int64: int64(t.Installment.Index), Valid: true}
		instCount = sql.NullInt64{Int64: int64(t.Installment.Count), Valid: true}
	}
	groupID := sql.NullString{String: t.GroupID, Valid: t.GroupID != ""}

	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO transactions (id, description, kind, amount, occurred_at, due_at, status,
			category_id, account_id, card_id, group_id, installment_index, installment_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		nullableID(t.ID), t.Description, string(t.Kind), t.Amount, toMillis(t.Date), toMillis(t.DueDate), string(t.Status),
		nullableRef(t.CategoryID), nullableRef(t.AccountID), nullableRef(t.CardID), groupID, instIndex, instCount,
	).Scan(&id)
	return id, err
}

// MarkPaid flags the given pending transactions as paid and returns how
// many changed.
func (q *Queries) MarkPaid(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET status = 'paid' WHERE status = 'pending' AND id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GroupMembersFrom lists the ids of a group due on or after from.
func (q *Queries) GroupMembersFrom(ctx context.Context, groupID string, from time.Time) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id FROM transactions WHERE group_id = ? AND due_at >= ? ORDER BY due_at, id`,
		groupID, toMillis(from),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *Queries) DeleteTransactions(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- shared ---

// Reference columns of the transactions table, by referenced entity.
const (
	refAccount  = "account_id"
	refCard     = "card_id"
	refCategory = "category_id"
)

func (q *Queries) CountReferences(ctx context.Context, column string, id int64) (int, error) {
	switch column {
	case refAccount, refCard, refCategory:
	default:
		return 0, fmt.Errorf("unknown reference column %q", column)
	}
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+column+` = ?`, id).Scan(&n)
	return n, err
}

// Tables in dependency order: referencing tables come last.
var tables = []string{"accounts", "cards", "categories", "transactions", "goals"}

func (q *Queries) DeleteByID(ctx context.Context, table string, id int64) (int64, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ClearAll(ctx context.Context) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := q.db.ExecContext(ctx, `DELETE FROM `+tables[i]); err != nil {
			return fmt.Errorf("clear %s: %w", tables[i], err)
		}
	}
	return nil
}

func knownTable(name string) bool {
	for _, t := range tables {
		if t == name {
			return true
		}
	}
	return false
}
