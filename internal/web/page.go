package web

import (
	"bytes"
	"html/template"
	"net/http"
	"slices"
	"time"

	"deskcal/internal/calendar"
	"deskcal/internal/ics"
	appLog "deskcal/internal/log"
	"deskcal/internal/model"
)

// pageData feeds templates/calendar.html.
type pageData struct {
	Title       string
	Ref         model.Date
	Prev        model.Date
	Next        model.Date
	Headers     []string
	Weeks       [][]calendar.DayCell
	TodayEvents []model.Event
}

var pageFuncs = template.FuncMap{
	// conflicted reports whether ev takes part in any of the cell's conflicts.
	"conflicted": func(cell calendar.DayCell, ev model.Event) bool {
		return slices.ContainsFunc(cell.Conflicts, func(c calendar.Conflict) bool {
			return c.A.ID == ev.ID || c.B.ID == ev.ID
		})
	},
}

// handleCalendarPage renders the month around ?date= as static HTML. The
// root element carries data-ready="true" so the screenshot capture knows
// rendering is complete.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.referenceDate(w, r.URL.Query())
	if !ok {
		return
	}

	cells := s.cal.MonthGrid(ref)
	data := pageData{
		Title:       ref.Time().Format("January 2006"),
		Ref:         ref,
		Prev:        calendar.AddMonths(ref, -1),
		Next:        calendar.AddMonths(ref, 1),
		Headers:     weekdayHeaders(s.cal.WeekStart()),
		Weeks:       calendar.Weeks(cells),
		TodayEvents: s.cal.TodayEvents(),
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		appLog.Error("calendar page render failed", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleICS exports every event as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := ics.Export(&buf, s.cal.Events(), ics.DefaultProdID, s.now()); err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	_, _ = buf.WriteTo(w)
}

func weekdayHeaders(start time.Weekday) []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = time.Weekday((int(start) + i) % 7).String()[:3]
	}
	return out
}
