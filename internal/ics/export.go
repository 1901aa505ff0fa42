package ics

import (
	"fmt"
	"io"
	"time"

	goical "github.com/emersion/go-ical"

	"deskcal/internal/model"
)

// DefaultProdID identifies feeds written by this program.
const DefaultProdID = "-//deskcal//calendar export//EN"

// propColor is the RFC 7986 COLOR property. Only #RRGGBB values are written.
const propColor = "COLOR"

// Export writes events as a VCALENDAR, one VEVENT per event.
//
// DTSTART/DTEND are floating local date-times, matching the timezone-free
// event model; UID is the event id so re-exports stay stable.
func Export(w io.Writer, events []model.Event, prodID string, stamp time.Time) error {
	if prodID == "" {
		prodID = DefaultProdID
	}

	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, prodID)

	for _, ev := range events {
		if ev.ID == "" {
			return fmt.Errorf("export: event %q has no id", ev.Title)
		}
		vev := goical.NewEvent()
		vev.Props.SetText(goical.PropUID, ev.ID)
		vev.Props.SetDateTime(goical.PropDateTimeStamp, stamp.UTC())
		vev.Props.SetText(goical.PropSummary, ev.Title)
		vev.Props.SetDateTime(goical.PropDateTimeStart, ev.Start.On(ev.Date, time.Local))
		vev.Props.SetDateTime(goical.PropDateTimeEnd, ev.End.On(ev.Date, time.Local))
		if model.ValidColor(ev.Color) {
			vev.Props.SetText(propColor, ev.Color)
		}
		cal.Children = append(cal.Children, vev.Component)
	}

	if err := goical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return nil
}
