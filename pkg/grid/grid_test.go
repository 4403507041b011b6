package grid

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name       string
		ref        time.Time
		weekStart  time.Weekday
		wantBlanks int
		wantDays   int
	}{
		// April 2026 starts on a Wednesday
		{"april 2026 monday start", date(2026, time.April, 15), time.Monday, 2, 30},
		{"april 2026 sunday start", date(2026, time.April, 15), time.Sunday, 3, 30},
		// September 2026 starts on a Tuesday
		{"september 2026 sunday start", date(2026, time.September, 1), time.Sunday, 2, 30},
		// Month starting exactly on the week start has no blanks
		{"november 2026 sunday start", date(2026, time.November, 30), time.Sunday, 0, 30},
		{"june 2026 monday start", date(2026, time.June, 10), time.Monday, 0, 30},
		// Month starting the day before the week start has six blanks
		{"february 2026 monday start", date(2026, time.February, 14), time.Monday, 6, 28},
		// Leap February
		{"february 2024 sunday start", date(2024, time.February, 29), time.Sunday, 4, 29},
		// 31-day month with maximum offset
		{"august 2026 sunday start", date(2026, time.August, 31), time.Sunday, 6, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := Build(tt.ref, tt.weekStart)

			if len(cells) != tt.wantBlanks+tt.wantDays {
				t.Fatalf("got %d cells, want %d", len(cells), tt.wantBlanks+tt.wantDays)
			}

			for i := 0; i < tt.wantBlanks; i++ {
				if !cells[i].Blank {
					t.Errorf("cell %d: expected blank", i)
				}
				if cells[i].Day() != 0 {
					t.Errorf("cell %d: blank should report day 0, got %d", i, cells[i].Day())
				}
			}

			for d := 1; d <= tt.wantDays; d++ {
				cell := cells[tt.wantBlanks+d-1]
				if cell.Blank {
					t.Fatalf("day %d: unexpected blank", d)
				}
				if cell.Day() != d {
					t.Errorf("day %d: got %d", d, cell.Day())
				}
				if cell.Date.Month() != tt.ref.Month() || cell.Date.Year() != tt.ref.Year() {
					t.Errorf("day %d: date %v outside month", d, cell.Date)
				}
			}

			// First date cell must land on the configured week start
			// column, which is what the blanks are for.
			firstDate := cells[tt.wantBlanks].Date
			col := (int(firstDate.Weekday()) - int(tt.weekStart) + 7) % 7
			if col != tt.wantBlanks {
				t.Errorf("first day column %d, want %d", col, tt.wantBlanks)
			}
		})
	}
}

func TestBuildZeroDate(t *testing.T) {
	if cells := Build(time.Time{}, time.Sunday); cells != nil {
		t.Errorf("expected nil for zero date, got %d cells", len(cells))
	}
}

func TestBuildIsPure(t *testing.T) {
	ref := date(2026, time.April, 10)

	a := Build(ref, time.Monday)
	b := Build(ref, time.Monday)

	if len(a) != len(b) {
		t.Fatalf("repeated builds differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("cell %d differs between builds: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestBuildAnyDayOfMonthIsEquivalent(t *testing.T) {
	a := Build(date(2026, time.April, 1), time.Sunday)
	b := Build(date(2026, time.April, 30), time.Sunday)

	if len(a) != len(b) {
		t.Fatalf("reference day changed the layout: %d vs %d cells", len(a), len(b))
	}
}

func TestDaysIn(t *testing.T) {
	tests := []struct {
		ref  time.Time
		want int
	}{
		{date(2026, time.January, 1), 31},
		{date(2026, time.February, 10), 28},
		{date(2024, time.February, 1), 29},
		{date(2026, time.April, 30), 30},
		{date(2026, time.December, 25), 31},
	}

	for _, tt := range tests {
		if got := DaysIn(tt.ref); got != tt.want {
			t.Errorf("DaysIn(%v) = %d, want %d", tt.ref, got, tt.want)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(date(2026, time.April, 15))

	if !start.Equal(date(2026, time.April, 1)) {
		t.Errorf("start = %v", start)
	}
	if end.Month() != time.April || end.Day() != 30 {
		t.Errorf("end = %v", end)
	}
	if !end.Before(date(2026, time.May, 1)) {
		t.Errorf("end %v spills into the next month", end)
	}
	// The bounds are inclusive; the gap to the next month is below a
	// nanosecond.
	if date(2026, time.May, 1).Sub(end) != time.Nanosecond {
		t.Errorf("end %v is not the last nanosecond of April", end)
	}
}

func TestStartOfMonth(t *testing.T) {
	got := StartOfMonth(time.Date(2026, time.August, 31, 17, 45, 12, 999, time.UTC))
	if !got.Equal(date(2026, time.August, 1)) {
		t.Errorf("got %v", got)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, time.March, 3, 0, 0, 1, 0, time.UTC)
	b := time.Date(2026, time.March, 3, 23, 59, 59, 0, time.UTC)
	c := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)

	if !SameDay(a, b) {
		t.Error("same calendar day reported as different")
	}
	if SameDay(b, c) {
		t.Error("adjacent days reported as equal")
	}
}
