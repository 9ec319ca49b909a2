package billing

import "time"

// Windows are the invoice cycles of a card as seen from one day.
type Windows struct {
	// NextDue is the due date of the invoice currently awaiting payment.
	NextDue time.Time `json:"next_due"`
	// LastClosing closed the invoice that is due at NextDue.
	LastClosing time.Time `json:"last_closing"`
	// CurrentClosing will close the invoice now accumulating.
	CurrentClosing time.Time `json:"current_closing"`
	Closed         Window    `json:"closed"`
	Open           Window    `json:"open"`
}

// ResolveWindows computes the closed and open invoice windows of a card
// with the given closing and due days, as of today. Dates are computed in
// today's location. Days invalid for a month clamp to its last day.
func ResolveWindows(today time.Time, closingDay, dueDay int) Windows {
	nextDue := anchoredMonth(today, 0, dueDay)
	if today.Day() > dueDay {
		nextDue = anchoredMonth(today, 1, dueDay)
	}

	lastClosing := anchoredMonth(nextDue, -1, closingDay)
	previousClosing := anchoredMonth(lastClosing, -1, closingDay)
	currentClosing := anchoredMonth(lastClosing, 1, closingDay)

	return Windows{
		NextDue:        nextDue,
		LastClosing:    lastClosing,
		CurrentClosing: currentClosing,
		Closed: Window{
			Start: StartOfDay(previousClosing.AddDate(0, 0, 1)),
			End:   EndOfDay(lastClosing),
		},
		Open: Window{
			Start: StartOfDay(lastClosing.AddDate(0, 0, 1)),
			End:   EndOfDay(currentClosing),
		},
	}
}
