// Package billing implements the credit card billing cycle engine: invoice
// windows, invoice totals, installment schedules and debt projections.
// Every function is pure; callers pass in the clock and the records.
package billing

import "time"

// Window is an inclusive time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, both ends included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// DayInMonth returns midnight of the given day in year/month. Days past the
// end of a short month clamp to its last day, so day 31 in April is April 30.
// Month values outside 1..12 roll over into neighbouring years.
func DayInMonth(year int, month time.Month, day int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, loc)
}

// anchoredMonth moves months away from t's month and lands on day. The
// shift is always anchored on the configured day rather than on a date that
// was already clamped.
func anchoredMonth(t time.Time, months int, day int) time.Time {
	return DayInMonth(t.Year(), t.Month()+time.Month(months), day, t.Location())
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// MonthWindow spans the calendar month containing t.
func MonthWindow(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}
