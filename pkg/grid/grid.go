// Package grid lays out the cells of a month view.
package grid

import "time"

// Cell is a single slot in the month grid: either a leading blank
// before the first day of the month, or a concrete calendar date.
type Cell struct {
	Blank bool
	Date  time.Time // zero when Blank
}

// Day returns the day-of-month for a date cell, or 0 for a blank.
func (c Cell) Day() int {
	if c.Blank {
		return 0
	}
	return c.Date.Day()
}

// Build returns the ordered cells for the month containing ref:
// leading blanks up to the weekday of day 1 under the given
// first-day-of-week, then one cell per day in ascending order. No
// trailing padding is added. A zero reference date yields nil.
func Build(ref time.Time, weekStart time.Weekday) []Cell {
	if ref.IsZero() {
		return nil
	}

	loc := ref.Location()
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
	days := DaysIn(ref)

	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7

	cells := make([]Cell, 0, offset+days)
	for i := 0; i < offset; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for d := 1; d <= days; d++ {
		cells = append(cells, Cell{Date: time.Date(ref.Year(), ref.Month(), d, 0, 0, 0, 0, loc)})
	}

	return cells
}

// DaysIn returns the number of days in the month containing ref.
func DaysIn(ref time.Time) int {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return first.AddDate(0, 1, -1).Day()
}

// MonthBounds returns the inclusive range covered by the month
// containing ref: the first instant of day 1 and the last nanosecond
// of the last day. The repository queries the store with these bounds
// using overlap semantics, so events spanning a boundary are included.
func MonthBounds(ref time.Time) (time.Time, time.Time) {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// StartOfMonth truncates ref to the first instant of its month.
func StartOfMonth(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
