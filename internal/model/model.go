package model

import (
	"strings"
)

// DefaultColor is the display color given to events that arrive without one.
const DefaultColor = "#3b82f6"

// Event is a titled time interval on a single calendar day.
//
// Start and End are wall-clock times on Date; there is no timezone and no
// recurrence. Color is carried through untouched by every scheduling
// computation.
type Event struct {
	// ID is assigned by the store when the event is added and never changes.
	ID string `json:"id" yaml:"id"`

	Title string    `json:"title" yaml:"title"`
	Date  Date      `json:"date" yaml:"date"`
	Start TimeOfDay `json:"startTime" yaml:"startTime"`
	End   TimeOfDay `json:"endTime" yaml:"endTime"`
	Color string    `json:"color" yaml:"color"`
}

// Normalized returns a copy with surrounding whitespace removed from the
// title and the default color filled in.
func (e Event) Normalized() Event {
	e.Title = strings.TrimSpace(e.Title)
	e.Color = strings.TrimSpace(e.Color)
	if e.Color == "" {
		e.Color = DefaultColor
	}
	return e
}

// Validate reports the first field that makes e unusable. It does not look
// at ID.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if e.Date.IsZero() || !e.Date.Valid() {
		return &ValidationError{Field: "date", Reason: "must be a calendar date"}
	}
	if !e.Start.Valid() {
		return &ValidationError{Field: "startTime", Reason: "must be between 00:00 and 23:59"}
	}
	if !e.End.Valid() {
		return &ValidationError{Field: "endTime", Reason: "must be between 00:00 and 23:59"}
	}
	if e.End <= e.Start {
		return &ValidationError{Field: "endTime", Reason: "must be after startTime"}
	}
	if e.Color != "" && !ValidColor(e.Color) {
		return &ValidationError{Field: "color", Reason: "must be #RRGGBB"}
	}
	return nil
}

// Overlaps reports whether e and o share any instant under half-open
// [Start, End) semantics. Events on different days never overlap.
func (e Event) Overlaps(o Event) bool {
	if e.Date != o.Date {
		return false
	}
	return e.Start < o.End && o.Start < e.End
}

// Record is the textual shape of an event as it appears in bootstrap
// datasets and API request bodies.
type Record struct {
	Title     string `json:"title" yaml:"title"`
	Date      string `json:"date" yaml:"date"`
	StartTime string `json:"startTime" yaml:"startTime"`
	EndTime   string `json:"endTime" yaml:"endTime"`
	Color     string `json:"color" yaml:"color"`
}

// Event parses the record's date and times and validates the result.
// Any failure is returned as a *ValidationError.
func (r Record) Event() (Event, error) {
	var ev Event
	ev.Title = r.Title
	ev.Color = r.Color

	d, err := ParseDate(r.Date)
	if err != nil {
		return Event{}, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD, got " + quote(r.Date)}
	}
	ev.Date = d

	start, err := ParseTimeOfDay(r.StartTime)
	if err != nil {
		return Event{}, &ValidationError{Field: "startTime", Reason: "expected HH:MM, got " + quote(r.StartTime)}
	}
	ev.Start = start

	end, err := ParseTimeOfDay(r.EndTime)
	if err != nil {
		return Event{}, &ValidationError{Field: "endTime", Reason: "expected HH:MM, got " + quote(r.EndTime)}
	}
	ev.End = end

	ev = ev.Normalized()
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// RecordOf converts an event back into its textual shape.
func RecordOf(e Event) Record {
	return Record{
		Title:     e.Title,
		Date:      e.Date.String(),
		StartTime: e.Start.String(),
		EndTime:   e.End.String(),
		Color:     e.Color,
	}
}

// ValidColor reports whether s is a #RRGGBB hex color.
func ValidColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func quote(s string) string {
	return "\"" + s + "\""
}
