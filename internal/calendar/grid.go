// Package calendar holds the pure scheduling computations: month grids,
// conflict detection, event filters and reference-date navigation.
// Nothing here mutates the event store.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"deskcal/internal/model"
)

// DefaultWeekStart is the weekday that opens every grid row unless
// configured otherwise.
const DefaultWeekStart = time.Sunday

// DayCell is one square of the month grid. Events and Conflicts are derived
// on demand from a store snapshot and never stored.
type DayCell struct {
	Date      model.Date
	InMonth   bool
	IsToday   bool
	Events    []model.Event
	Conflicts []Conflict
}

// BuildGrid returns every date from the start of the week containing the
// first of ref's month through the end of the week containing its last day.
//
// The length is always a multiple of 7 (28, 35 or 42); callers must not
// assume a fixed size.
func BuildGrid(ref model.Date, weekStart time.Weekday) []model.Date {
	monthStart := ref.FirstOfMonth()
	monthEnd := ref.LastOfMonth()

	gridStart := startOfWeek(monthStart, weekStart)
	gridEnd := startOfWeek(monthEnd, weekStart).AddDays(6)

	days := make([]model.Date, 0, 42)
	for d := gridStart; !d.After(gridEnd); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// MonthGrid joins the grid for ref against events: each cell receives the
// events dated that day, in their original order, plus the conflicting
// pairs among them.
func MonthGrid(ref model.Date, weekStart time.Weekday, events []model.Event, today model.Date) []DayCell {
	days := BuildGrid(ref, weekStart)

	buckets := make(map[model.Date][]model.Event, len(days))
	first, last := days[0], days[len(days)-1]
	for _, ev := range events {
		if ev.Date.Before(first) || ev.Date.After(last) {
			continue
		}
		buckets[ev.Date] = append(buckets[ev.Date], ev)
	}

	cells := make([]DayCell, len(days))
	for i, d := range days {
		dayEvents := buckets[d]
		cells[i] = DayCell{
			Date:      d,
			InMonth:   d.Month == ref.Month && d.Year == ref.Year,
			IsToday:   d == today,
			Events:    dayEvents,
			Conflicts: DetectConflicts(dayEvents),
		}
	}
	return cells
}

// Weeks splits a grid into rows of seven.
func Weeks[T any](days []T) [][]T {
	rows := make([][]T, 0, len(days)/7)
	for i := 0; i+7 <= len(days); i += 7 {
		rows = append(rows, days[i:i+7])
	}
	return rows
}

// ParseWeekday accepts an English weekday name or its three-letter
// abbreviation, case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if n == full || n == full[:3] {
			return wd, nil
		}
	}
	return DefaultWeekStart, fmt.Errorf("unknown weekday %q", name)
}

func startOfWeek(d model.Date, weekStart time.Weekday) model.Date {
	offset := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDays(-offset)
}
