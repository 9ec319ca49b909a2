package billing

import (
	"github.com/shopspring/decimal"

	"fingestor/internal/core"
)

var hundred = decimal.NewFromInt(100)

// InvoiceSummary is the state of one card's invoices and limit.
type InvoiceSummary struct {
	Limit              decimal.Decimal `json:"limit"`
	ClosedTotal        decimal.Decimal `json:"closed_total"`
	OpenTotal          decimal.Decimal `json:"open_total"`
	FutureInstallments decimal.Decimal `json:"future_installments"`
	// Committed is OpenTotal plus FutureInstallments. The closed invoice is
	// a separate obligation and never counts against it.
	Committed decimal.Decimal `json:"committed"`
	// Available is Limit minus Committed. Negative means over limit.
	Available decimal.Decimal `json:"available"`
	// ClosedTransactionIDs are the pending records summed in ClosedTotal.
	ClosedTransactionIDs []int64 `json:"closed_transaction_ids"`
}

// Aggregate sums a card's transactions into its closed invoice, open
// invoice and future installments.
func Aggregate(txs []core.Transaction, w Windows, limit decimal.Decimal) InvoiceSummary {
	s := InvoiceSummary{
		Limit:                limit,
		ClosedTotal:          decimal.Zero,
		OpenTotal:            decimal.Zero,
		FutureInstallments:   decimal.Zero,
		ClosedTransactionIDs: []int64{},
	}

	for _, t := range txs {
		if t.Status == core.StatusPending && w.Closed.Contains(t.Date) {
			s.ClosedTotal = s.ClosedTotal.Add(t.Amount)
			s.ClosedTransactionIDs = append(s.ClosedTransactionIDs, t.ID)
		}
		if w.Open.Contains(t.Date) {
			s.OpenTotal = s.OpenTotal.Add(t.Amount)
		}
		if t.GroupID != "" && t.DueDate.After(w.Open.End) {
			s.FutureInstallments = s.FutureInstallments.Add(t.Amount)
		}
	}

	s.Committed = s.OpenTotal.Add(s.FutureInstallments)
	s.Available = limit.Sub(s.Committed)
	return s
}

// CommittedPercent is the share of the limit in use, in percent with two
// decimals. A zero limit reports 0.
func (s InvoiceSummary) CommittedPercent() float64 {
	if s.Limit.IsZero() {
		return 0
	}
	pct, _ := s.Committed.Div(s.Limit).Mul(hundred).Round(2).Float64()
	return pct
}

// Payable reports whether the closed invoice has anything to pay.
func (s InvoiceSummary) Payable() bool {
	return s.ClosedTotal.IsPositive()
}
