package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "deskcal/internal/log"
	"deskcal/internal/model"
)

// ImportResult holds the events taken from a feed and the VEVENTs that could
// not be represented as single-day timed events.
type ImportResult struct {
	Events  []model.Event
	Skipped []error
}

// Import parses an iCalendar payload into events.
//
//   - Times are taken as written (wall clock in the VEVENT's own zone);
//     nothing is converted between timezones.
//   - All-day, multi-day, recurring-only and otherwise invalid VEVENTs are
//     skipped and reported in Skipped.
//   - A COLOR property, when present and well-formed, becomes the event color;
//     otherwise fallbackColor is used.
//
// Returned events carry no id; the store assigns one when they are added.
func Import(body []byte, fallbackColor string) (ImportResult, error) {
	var res ImportResult
	if len(bytes.TrimSpace(body)) == 0 {
		return res, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return res, fmt.Errorf("parse ICS: %w", err)
	}

	for i, ve := range cal.Events() {
		ev, err := eventFromVEvent(ve, fallbackColor)
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Errorf("vevent %d: %w", i, err))
			continue
		}
		res.Events = append(res.Events, ev)
	}
	return res, nil
}

func eventFromVEvent(ve *ical.VEvent, fallbackColor string) (model.Event, error) {
	var ev model.Event

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = unescapeText(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}
	if isDateOnly(dtStart) {
		return ev, errors.New("all-day events are not supported")
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return ev, fmt.Errorf("DTEND: %w", err)
	}

	ev.Date = model.DateOf(start)
	if model.DateOf(end) != ev.Date {
		return ev, errors.New("events spanning several days are not supported")
	}
	ev.Start, err = model.NewTimeOfDay(start.Hour(), start.Minute())
	if err != nil {
		return ev, err
	}
	ev.End, err = model.NewTimeOfDay(end.Hour(), end.Minute())
	if err != nil {
		return ev, err
	}

	ev.Color = fallbackColor
	if p := ve.GetProperty(ical.ComponentProperty(propColor)); p != nil {
		if c := strings.TrimSpace(p.Value); model.ValidColor(c) {
			ev.Color = c
		}
	}

	ev = ev.Normalized()
	if err := ev.Validate(); err != nil {
		return ev, err
	}
	return ev, nil
}

// isDateOnly reports whether a DTSTART carries VALUE=DATE or a bare
// YYYYMMDD value.
func isDateOnly(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\;`, `;`, `\,`, `,`, `\n`, "\n", `\N`, "\n")

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}

// ImportFeeds merges the events of already fetched feeds, in source order.
// A feed that fails to parse is logged and skipped.
func ImportFeeds(results []FetchResult) []model.Event {
	var out []model.Event
	for _, r := range results {
		imp, err := Import(r.Body, r.Source.Color)
		if err != nil {
			appLog.Error("ics import failed", err, "id", r.Source.ID)
			continue
		}
		for _, skipped := range imp.Skipped {
			appLog.Debug("ics import skipped vevent", "id", r.Source.ID, "reason", skipped.Error())
		}
		appLog.Info("ics import completed", "id", r.Source.ID, "events", len(imp.Events), "skipped", len(imp.Skipped), "from_cache", r.FromCache)
		out = append(out, imp.Events...)
	}
	return out
}
