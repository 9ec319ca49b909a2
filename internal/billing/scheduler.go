package billing

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fingestor/internal/core"
)

// Purchase is a card purchase about to be split into installments.
type Purchase struct {
	Description string
	Total       decimal.Decimal
	Count       int
	Date        time.Time
	ClosingDay  int
	DueDay      int
	CardID      int64
	CategoryID  int64
}

var errMissingGroupID = errors.New("group id is required for more than one installment")

func (p Purchase) validate() error {
	if strings.TrimSpace(p.Description) == "" {
		return core.NewValidationError("description", core.ErrEmptyDescription)
	}
	if !p.Total.IsPositive() {
		return core.NewValidationError("total", core.ErrInvalidAmount)
	}
	if p.Count < 1 {
		return core.NewValidationError("installments", core.ErrInvalidCount)
	}
	if p.Date.IsZero() {
		return core.NewValidationError("date", core.ErrZeroDate)
	}
	if p.ClosingDay < 1 || p.ClosingDay > 31 {
		return core.NewValidationError("closing_day", core.ErrInvalidDay)
	}
	if p.DueDay < 1 || p.DueDay > 31 {
		return core.NewValidationError("due_day", core.ErrInvalidDay)
	}
	return nil
}

// FirstDueDate is the due date of the first installment: the purchase month
// on the due day, one month later when the purchase happened after closing.
func FirstDueDate(purchase time.Time, closingDay, dueDay int) time.Time {
	return anchoredMonth(purchase, firstDueOffset(purchase, closingDay), dueDay)
}

func firstDueOffset(purchase time.Time, closingDay int) int {
	if purchase.Day() > closingDay {
		return 1
	}
	return 0
}

// InstallmentAmount is total/count rounded to cents. The installments of a
// purchase may therefore add up to slightly more or less than its total,
// by at most count half-cents.
func InstallmentAmount(total decimal.Decimal, count int) decimal.Decimal {
	return core.RoundMoney(total.Div(decimal.NewFromInt(int64(count))))
}

// Schedule splits a purchase into pending expense installments due on
// consecutive months. groupID ties the installments together and is only
// used, and required, when there is more than one.
func Schedule(p Purchase, groupID string) ([]core.Transaction, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Count > 1 && groupID == "" {
		return nil, errMissingGroupID
	}

	amount := InstallmentAmount(p.Total, p.Count)
	offset := firstDueOffset(p.Date, p.ClosingDay)
	description := strings.TrimSpace(p.Description)

	txs := make([]core.Transaction, 0, p.Count)
	for i := 1; i <= p.Count; i++ {
		cardID, categoryID := p.CardID, p.CategoryID
		tx := core.Transaction{
			Description: description,
			Kind:        core.KindExpense,
			Amount:      amount,
			Date:        p.Date,
			DueDate:     anchoredMonth(p.Date, offset+i-1, p.DueDay),
			Status:      core.StatusPending,
			CardID:      &cardID,
			CategoryID:  &categoryID,
		}
		if p.Count > 1 {
			inst := core.Installment{Index: i, Count: p.Count}
			tx.Description += inst.Suffix()
			tx.Installment = &inst
			tx.GroupID = groupID
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
