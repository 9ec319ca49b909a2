package sheets

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"fingestor/internal/core"
)

// DateLayout is how dates are written to mirror rows.
const DateLayout = "2006-01-02"

// Header names the mirror columns, in order.
var Header = []string{"ID", "Date", "Due date", "Description", "Kind", "Amount", "Status"}

// Row is the flat, read-only copy of a transaction kept in a mirror.
type Row struct {
	ID          int64
	Date        time.Time
	DueDate     time.Time
	Description string
	Kind        core.Kind
	Amount      decimal.Decimal
	Status      core.Status
}

func RowFromTransaction(t core.Transaction) Row {
	return Row{
		ID:          t.ID,
		Date:        t.Date,
		DueDate:     t.DueDate,
		Description: t.Description,
		Kind:        t.Kind,
		Amount:      t.Amount,
		Status:      t.Status,
	}
}

// Values renders the row as cell values matching Header.
func (r Row) Values() []any {
	return []any{
		strconv.FormatInt(r.ID, 10),
		r.Date.Format(DateLayout),
		r.DueDate.Format(DateLayout),
		r.Description,
		string(r.Kind),
		core.FormatMoney(r.Amount),
		string(r.Status),
	}
}

// Equal compares rows at the precision they are mirrored with.
func (r Row) Equal(o Row) bool {
	return r.ID == o.ID &&
		r.Date.Format(DateLayout) == o.Date.Format(DateLayout) &&
		r.DueDate.Format(DateLayout) == o.DueDate.Format(DateLayout) &&
		r.Description == o.Description &&
		r.Kind == o.Kind &&
		core.RoundMoney(r.Amount).Equal(core.RoundMoney(o.Amount)) &&
		r.Status == o.Status
}

// TransactionMirror is an outbound copy of the transaction ledger, kept in
// sync from change events.
type TransactionMirror interface {
	// Upsert writes the row, replacing any row with the same id.
	Upsert(ctx context.Context, r Row) error
	// Delete removes the row with the given id. Missing rows are ignored.
	Delete(ctx context.Context, id int64) error
	// ReplaceAll swaps the mirror contents for rows.
	ReplaceAll(ctx context.Context, rows []Row) error
	// List returns the mirrored rows ordered by id.
	List(ctx context.Context) ([]Row, error)
}
