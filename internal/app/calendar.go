// Package app exposes the calendar's query surface to the HTTP handlers, the
// CLI and the scheduler. It joins the event store with the pure grid, filter
// and navigation functions.
package app

import (
	"sync"
	"time"

	"deskcal/internal/calendar"
	"deskcal/internal/clock"
	appLog "deskcal/internal/log"
	"deskcal/internal/model"
	"deskcal/internal/store"
)

// EventRepository is the part of the event store the service needs.
type EventRepository interface {
	Snapshot() *store.Snapshot
	Get(id string) (model.Event, error)
	Add(ev model.Event) (string, error)
	Update(id string, patch model.Event) (model.Event, error)
	Remove(id string) bool
}

type Calendar struct {
	repo      EventRepository
	clock     clock.Clock
	weekStart time.Weekday

	gridMu    sync.Mutex
	gridCache map[gridKey][]calendar.DayCell
	gridVer   uint64
}

// gridKey identifies one memoized month grid. Results are only reused while
// the store version they were built from is current.
type gridKey struct {
	year  int
	month time.Month
	today model.Date
}

type CalendarOption func(*Calendar)

// WithWeekStart overrides the weekday that opens each grid row.
func WithWeekStart(wd time.Weekday) CalendarOption {
	return func(c *Calendar) {
		if wd >= time.Sunday && wd <= time.Saturday {
			c.weekStart = wd
		}
	}
}

func NewCalendar(repo EventRepository, clk clock.Clock, opts ...CalendarOption) *Calendar {
	c := &Calendar{
		repo:      repo,
		clock:     clk,
		weekStart: calendar.DefaultWeekStart,
		gridCache: make(map[gridKey][]calendar.DayCell),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WeekStart reports the configured first day of the week.
func (c *Calendar) WeekStart() time.Weekday {
	return c.weekStart
}

// Today is the current date according to the service clock.
func (c *Calendar) Today() model.Date {
	return calendar.Today(c.clock)
}

// Version is the store version the next query will read.
func (c *Calendar) Version() uint64 {
	return c.repo.Snapshot().Version
}

// Events returns every event in insertion order.
func (c *Calendar) Events() []model.Event {
	snap := c.repo.Snapshot()
	out := make([]model.Event, len(snap.Events))
	copy(out, snap.Events)
	return out
}

// Event returns one event by id or model.ErrNotFound.
func (c *Calendar) Event(id string) (model.Event, error) {
	return c.repo.Get(id)
}

// MonthGrid returns the day cells for the month containing ref. The result
// is shared between callers and must be treated as read-only.
func (c *Calendar) MonthGrid(ref model.Date) []calendar.DayCell {
	snap := c.repo.Snapshot()
	key := gridKey{year: ref.Year, month: ref.Month, today: c.Today()}

	c.gridMu.Lock()
	defer c.gridMu.Unlock()

	if c.gridVer != snap.Version {
		clear(c.gridCache)
		c.gridVer = snap.Version
	}
	if cells, ok := c.gridCache[key]; ok {
		return cells
	}

	cells := calendar.MonthGrid(ref, c.weekStart, snap.Events, key.today)
	c.gridCache[key] = cells
	appLog.Debug("app: month grid built", "month", ref.FirstOfMonth(), "cells", len(cells), "version", snap.Version)
	return cells
}

// ConflictsOn reports the overlapping pairs among the events on day.
func (c *Calendar) ConflictsOn(day model.Date) []calendar.Conflict {
	return calendar.DetectConflicts(calendar.OnDate(c.repo.Snapshot().Events, day))
}

func (c *Calendar) Search(query string) []model.Event {
	return calendar.Search(c.repo.Snapshot().Events, query)
}

func (c *Calendar) FilterByMonthYear(month time.Month, year int) []model.Event {
	return calendar.ByMonthYear(c.repo.Snapshot().Events, month, year)
}

func (c *Calendar) FilterByRange(from, to model.Date) []model.Event {
	return calendar.ByRange(c.repo.Snapshot().Events, from, to)
}

// TodayEvents lists the events dated today, for the reminders panel.
func (c *Calendar) TodayEvents() []model.Event {
	return calendar.OnDate(c.repo.Snapshot().Events, c.Today())
}

// Navigation describes one move of the reference date. Year and Month are
// applied first when set (non-zero), then Months is added.
type Navigation struct {
	Months int
	Month  time.Month
	Year   int
	// Target, when set, replaces the reference date outright.
	Target model.Date
	// ToToday resets the reference date to Today.
	ToToday bool
}

// Navigate applies nav to ref. A zero ref starts from today.
func (c *Calendar) Navigate(ref model.Date, nav Navigation) model.Date {
	if ref.IsZero() || nav.ToToday {
		ref = c.Today()
	}
	ref = calendar.JumpTo(ref, nav.Target)
	if nav.Year != 0 {
		ref = calendar.SetYear(ref, nav.Year)
	}
	if nav.Month != 0 {
		ref = calendar.SetMonth(ref, nav.Month)
	}
	if nav.Months != 0 {
		ref = calendar.AddMonths(ref, nav.Months)
	}
	return ref
}

// AddEvent stores ev and returns it with its new id.
func (c *Calendar) AddEvent(ev model.Event) (model.Event, error) {
	id, err := c.repo.Add(ev)
	if err != nil {
		return model.Event{}, err
	}
	return c.repo.Get(id)
}

func (c *Calendar) UpdateEvent(id string, patch model.Event) (model.Event, error) {
	return c.repo.Update(id, patch)
}

// RemoveEvent deletes the event with id; an unknown id yields
// model.ErrNotFound so callers can map it.
func (c *Calendar) RemoveEvent(id string) error {
	if !c.repo.Remove(id) {
		return model.ErrNotFound
	}
	return nil
}
