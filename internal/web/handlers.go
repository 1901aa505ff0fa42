package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"deskcal/internal/app"
	"deskcal/internal/calendar"
	"deskcal/internal/model"
)

// dayResponse is one grid cell. Conflicts are given as id pairs; the
// events themselves are already listed in Events.
type dayResponse struct {
	Date      model.Date     `json:"date"`
	InMonth   bool           `json:"inMonth"`
	IsToday   bool           `json:"isToday"`
	Events    []model.Event  `json:"events"`
	Conflicts []conflictPair `json:"conflicts"`
}

type conflictPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

type gridResponse struct {
	Reference model.Date    `json:"reference"`
	Today     model.Date    `json:"today"`
	WeekStart string        `json:"weekStart"`
	Years     []int         `json:"years"`
	Days      []dayResponse `json:"days"`
}

type eventsResponse struct {
	Events []model.Event `json:"events"`
}

type navigateResponse struct {
	Date model.Date `json:"date"`
}

// handleGrid returns the month grid around ?date= (default today).
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.referenceDate(w, r.URL.Query())
	if !ok {
		return
	}

	cells := s.cal.MonthGrid(ref)
	days := make([]dayResponse, 0, len(cells))
	for _, c := range cells {
		days = append(days, dayResponse{
			Date:      c.Date,
			InMonth:   c.InMonth,
			IsToday:   c.IsToday,
			Events:    nonNil(c.Events),
			Conflicts: conflictPairs(c.Conflicts),
		})
	}

	today := s.cal.Today()
	writeJSON(w, http.StatusOK, gridResponse{
		Reference: ref,
		Today:     today,
		WeekStart: strings.ToLower(s.cal.WeekStart().String()),
		Years:     calendar.YearChoices(today),
		Days:      days,
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, eventsResponse{Events: nonNil(s.cal.Events())})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.cal.Event(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	created, err := s.cal.AddEvent(ev)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Location", "/api/events/"+url.PathEscape(created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	updated, err := s.cal.UpdateEvent(r.PathValue("id"), ev)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.cal.RemoveEvent(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, eventsResponse{Events: s.cal.Search(r.URL.Query().Get("q"))})
}

// handleFilterMonth requires ?month=1..12 and ?year=.
func (s *Server) handleFilterMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, "month must be 1-12")
		return
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, "year must be an integer")
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: s.cal.FilterByMonthYear(time.Month(month), year)})
}

// handleFilterRange takes ?from= and ?to=. A missing bound is not an error;
// it simply matches nothing.
func (s *Server) handleFilterRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := optionalDate(q, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}
	to, err := optionalDate(q, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: s.cal.FilterByRange(from, to)})
}

func (s *Server) handleToday(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Date   model.Date    `json:"date"`
		Events []model.Event `json:"events"`
	}{
		Date:   s.cal.Today(),
		Events: s.cal.TodayEvents(),
	})
}

// handleNavigate moves ?date= by ?months=, or sets ?month= / ?year=, or
// resets to today with ?today=1.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref, err := optionalDate(q, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}

	var nav app.Navigation
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"months", &nav.Months},
		{"year", &nav.Year},
	} {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidQuery, p.name+" must be an integer")
				return
			}
			*p.dst = n
		}
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			writeError(w, http.StatusBadRequest, codeInvalidQuery, "month must be 1-12")
			return
		}
		nav.Month = time.Month(n)
	}
	nav.ToToday = q.Get("today") == "1" || q.Get("today") == "true"

	writeJSON(w, http.StatusOK, navigateResponse{Date: s.cal.Navigate(ref, nav)})
}

// referenceDate reads ?date=, falling back to today. It writes the error
// response itself and reports false on bad input.
func (s *Server) referenceDate(w http.ResponseWriter, q url.Values) (model.Date, bool) {
	d, err := optionalDate(q, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return model.Date{}, false
	}
	if d.IsZero() {
		d = s.cal.Today()
	}
	return d, true
}

func optionalDate(q url.Values, name string) (model.Date, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return model.Date{}, fmt.Errorf("%s must be YYYY-MM-DD", name)
	}
	return d, nil
}

// eventRequest is the body of POST and PUT. An id may be echoed back by
// clients but is ignored; the path (or the store) decides identity.
type eventRequest struct {
	ID string `json:"id,omitempty"`
	model.Record
}

// decodeEvent reads an eventRequest body and converts it to an event.
func decodeEvent(w http.ResponseWriter, r *http.Request) (model.Event, bool) {
	var req eventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return model.Event{}, false
	}
	ev, err := req.Record.Event()
	if err != nil {
		writeStoreError(w, err)
		return model.Event{}, false
	}
	return ev, true
}

func conflictPairs(cs []calendar.Conflict) []conflictPair {
	out := make([]conflictPair, 0, len(cs))
	for _, c := range cs {
		out = append(out, conflictPair{A: c.A.ID, B: c.B.ID})
	}
	return out
}

func nonNil(events []model.Event) []model.Event {
	if events == nil {
		return []model.Event{}
	}
	return events
}
