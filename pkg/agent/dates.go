package agent

import "time"

// DateAnchor is the set of concrete dates the SQL prompt uses to resolve
// relative phrases.
type DateAnchor struct {
	Today          string
	Weekday        string
	LastSaturday   string
	LastSunday     string
	PrevMonthStart string
	PrevMonthEnd   string
}

// NewDateAnchor computes the anchor for now. Weeks run Monday to Sunday, so
// on a Sunday "last weekend" is the current one.
func NewDateAnchor(now time.Time) DateAnchor {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	isoDow := int(today.Weekday())
	if isoDow == 0 {
		isoDow = 7
	}
	lastSunday := today.AddDate(0, 0, -(isoDow % 7))
	lastSaturday := lastSunday.AddDate(0, 0, -1)

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	prevMonthStart := monthStart.AddDate(0, -1, 0)
	prevMonthEnd := monthStart.AddDate(0, 0, -1)

	return DateAnchor{
		Today:          today.Format(time.DateOnly),
		Weekday:        today.Weekday().String(),
		LastSaturday:   lastSaturday.Format(time.DateOnly),
		LastSunday:     lastSunday.Format(time.DateOnly),
		PrevMonthStart: prevMonthStart.Format(time.DateOnly),
		PrevMonthEnd:   prevMonthEnd.Format(time.DateOnly),
	}
}
