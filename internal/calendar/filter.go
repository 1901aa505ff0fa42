package calendar

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"deskcal/internal/model"
)

// Search returns the events whose title contains query, compared with
// Unicode case folding. An empty query returns no events: the search panel
// shows nothing until the user types.
func Search(events []model.Event, query string) []model.Event {
	if query == "" {
		return []model.Event{}
	}
	fold := cases.Fold()
	needle := fold.String(query)
	return selectEvents(events, func(e model.Event) bool {
		return strings.Contains(fold.String(e.Title), needle)
	})
}

// ByMonthYear returns the events dated in the given month of the given year.
func ByMonthYear(events []model.Event, month time.Month, year int) []model.Event {
	return selectEvents(events, func(e model.Event) bool {
		return e.Date.Month == month && e.Date.Year == year
	})
}

// ByRange returns the events with from <= date <= to. If either bound is the
// zero Date (unset), nothing matches.
func ByRange(events []model.Event, from, to model.Date) []model.Event {
	if from.IsZero() || to.IsZero() {
		return []model.Event{}
	}
	return selectEvents(events, func(e model.Event) bool {
		return !e.Date.Before(from) && !e.Date.After(to)
	})
}

// OnDate returns the events on a single day; it backs the "today's
// reminders" list and the day detail view.
func OnDate(events []model.Event, day model.Date) []model.Event {
	return selectEvents(events, func(e model.Event) bool {
		return e.Date == day
	})
}

func selectEvents(events []model.Event, keep func(model.Event) bool) []model.Event {
	out := make([]model.Event, 0)
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
