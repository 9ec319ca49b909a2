package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

// MonthFlow is the settled income and expense of one month.
type MonthFlow struct {
	Month    YearMonth       `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// AccountBalance pairs an account with its derived balance.
type AccountBalance struct {
	Account Account         `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

// GoalProgress decorates a goal with its completion figures.
type GoalProgress struct {
	Goal          Goal    `json:"goal"`
	Percent       float64 `json:"percent"`
	DaysRemaining int     `json:"days_remaining"`
}
