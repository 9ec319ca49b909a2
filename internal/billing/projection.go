package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fingestor/internal/core"
)

// DebtProjection is what is left to pay on one installment purchase.
type DebtProjection struct {
	BaseDescription string          `json:"base_description"`
	RemainingTotal  decimal.Decimal `json:"remaining_total"`
	Installments    int             `json:"installments"`
	FinalDueDate    time.Time       `json:"final_due_date"`
	FinalPayoff     core.YearMonth  `json:"final_payoff"`
}

// ProjectDebts groups pending installment transactions by base description
// and reports, per group, the remaining total and the month of the last
// installment. Output is sorted by base description.
func ProjectDebts(txs []core.Transaction) []DebtProjection {
	groups := make(map[string]*DebtProjection)
	for _, t := range txs {
		key := t.BaseDescription()
		p, ok := groups[key]
		if !ok {
			p = &DebtProjection{BaseDescription: key, RemainingTotal: decimal.Zero}
			groups[key] = p
		}
		p.RemainingTotal = p.RemainingTotal.Add(t.Amount)
		p.Installments++
		if t.DueDate.After(p.FinalDueDate) {
			p.FinalDueDate = t.DueDate
		}
	}

	out := make([]DebtProjection, 0, len(groups))
	for _, p := range groups {
		p.FinalPayoff = core.YearMonthOf(p.FinalDueDate)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].BaseDescription < out[j].BaseDescription
	})
	return out
}
