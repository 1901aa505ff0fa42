package calendar

import (
	"time"

	"deskcal/internal/clock"
	"deskcal/internal/model"
)

// Navigation helpers move the reference date that drives the month grid.
// When the target month is shorter than the current day-of-month, the day is
// clamped to the target month's last day (Jan 31 + 1 month = Feb 28/29).

// AddMonths moves ref by n months (n may be negative).
func AddMonths(ref model.Date, n int) model.Date {
	total := int(ref.Month) - 1 + n
	year := ref.Year + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	return clampDay(year, month, ref.Day)
}

// SetMonth keeps ref's year and moves it to month. Out-of-range months are
// normalized into the neighbouring years first (month 13 is next January).
func SetMonth(ref model.Date, month time.Month) model.Date {
	return AddMonths(ref, int(month)-int(ref.Month))
}

// SetYear keeps ref's month and moves it to year; Feb 29 becomes Feb 28 in
// a non-leap year.
func SetYear(ref model.Date, year int) model.Date {
	return clampDay(year, ref.Month, ref.Day)
}

// Today returns the current calendar date as seen by clk.
func Today(clk clock.Clock) model.Date {
	return model.DateOf(clk.Now())
}

// JumpTo returns target as the new reference date; a zero target keeps ref.
// It is what the UI uses when a search hit is clicked.
func JumpTo(ref, target model.Date) model.Date {
	if target.IsZero() {
		return ref
	}
	return target
}

// YearChoices lists the years offered by the year selector: ten before
// today's year through nine after it.
func YearChoices(today model.Date) []int {
	years := make([]int, 0, 20)
	for y := today.Year - 10; y < today.Year+10; y++ {
		years = append(years, y)
	}
	return years
}

func clampDay(year int, month time.Month, day int) model.Date {
	d := model.Date{Year: year, Month: month, Day: 1}
	if last := d.DaysInMonth(); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	d.Day = day
	return d
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
