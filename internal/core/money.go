// Package core provides money parsing and handling utilities.
//
// Amounts are carried as shopspring decimals end to end; this file holds
// the rounding and text conversions shared by the billing engine, the
// spreadsheet mirror and the API.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for money values.
const MoneyPlaces = 2

// RoundMoney rounds d to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FormatMoney renders d with exactly two fractional digits, e.g. "1234.50".
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// ParseAmount parses a user supplied decimal string.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and a
// leading sign. The result is rounded to cents.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-5")     -> -5
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",")+strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return RoundMoney(d), nil
}

// SumAmounts adds the amounts of txs.
func SumAmounts(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}
