package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskcal/internal/app"
	"deskcal/internal/clock"
	"deskcal/internal/config"
	"deskcal/internal/model"
	"deskcal/internal/store"
)

var testNow = time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *store.EventStore) {
	t.Helper()
	n := 0
	s := store.New(store.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("ev-%d", n)
	}))
	cal := app.NewCalendar(s, clock.NewFixed(testNow))
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	srv := NewServer(cfg, cal)
	srv.now = func() time.Time { return testNow }
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, s
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

const standup = `{"title":"Standup","date":"2024-05-01","startTime":"09:00","endTime":"09:30","color":"#112233"}`
const syncEvent = `{"title":"Sync","date":"2024-05-01","startTime":"09:15","endTime":"09:45"}`

func TestHealth(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	resp := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBasicAuth(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	ts, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/health", "").StatusCode)

	resp := do(t, http.MethodGet, ts.URL+"/api/events", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	req.SetBasicAuth("me", "secret")
	ok, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer ok.Body.Close()
	assert.Equal(t, http.StatusOK, ok.StatusCode)
}

func TestEventsCRUD(t *testing.T) {
	t.Parallel()

	ts, s := newTestServer(t, nil)

	resp := do(t, http.MethodPost, ts.URL+"/api/events", standup)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/api/events/ev-1", resp.Header.Get("Location"))
	created := decode[model.Event](t, resp)
	assert.Equal(t, "ev-1", created.ID)
	assert.Equal(t, "Standup", created.Title)
	assert.Equal(t, model.MustTime(9, 0), created.Start)

	got := decode[model.Event](t, do(t, http.MethodGet, ts.URL+"/api/events/ev-1", ""))
	assert.Equal(t, created, got)

	moved := `{"id":"ignored","title":"Standup","date":"2024-05-02","startTime":"10:00","endTime":"10:15"}`
	resp = do(t, http.MethodPut, ts.URL+"/api/events/ev-1", moved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.Event](t, resp)
	assert.Equal(t, "ev-1", updated.ID)
	assert.Equal(t, model.Date{Year: 2024, Month: time.May, Day: 2}, updated.Date)
	assert.Equal(t, model.DefaultColor, updated.Color)

	list := decode[eventsResponse](t, do(t, http.MethodGet, ts.URL+"/api/events", ""))
	require.Len(t, list.Events, 1)

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, ts.URL+"/api/events/ev-1", "").StatusCode)
	assert.Empty(t, s.List())

	resp = do(t, http.MethodDelete, ts.URL+"/api/events/ev-1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, codeEventNotFound, decode[errorResponse](t, resp).Code)

	resp = do(t, http.MethodPut, ts.URL+"/api/events/missing", moved)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/api/events/missing", "").StatusCode)
}

func TestCreateEvent_Invalid(t *testing.T) {
	t.Parallel()

	ts, s := newTestServer(t, nil)

	tests := []struct {
		name  string
		body  string
		code  string
		field string
	}{
		{"not json", `{`, codeInvalidRequestBody, ""},
		{"unknown field", `{"title":"x","where":"here"}`, codeInvalidRequestBody, ""},
		{"empty title", `{"title":" ","date":"2024-05-01","startTime":"09:00","endTime":"10:00"}`, codeInvalidEvent, "title"},
		{"bad date", `{"title":"x","date":"2024-13-01","startTime":"09:00","endTime":"10:00"}`, codeInvalidEvent, "date"},
		{"end before start", `{"title":"x","date":"2024-05-01","startTime":"10:00","endTime":"10:00"}`, codeInvalidEvent, "endTime"},
		{"bad color", `{"title":"x","date":"2024-05-01","startTime":"09:00","endTime":"10:00","color":"red"}`, codeInvalidEvent, "color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, ts.URL+"/api/events", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			er := decode[errorResponse](t, resp)
			assert.Equal(t, tt.code, er.Code)
			assert.Equal(t, tt.field, er.Field)
		})
	}
	assert.Empty(t, s.List())
}

func TestGrid(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	do(t, http.MethodPost, ts.URL+"/api/events", standup)
	do(t, http.MethodPost, ts.URL+"/api/events", syncEvent)

	resp := do(t, http.MethodGet, ts.URL+"/api/grid?date=2024-05-20", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	grid := decode[gridResponse](t, resp)

	assert.Equal(t, "sunday", grid.WeekStart)
	require.Len(t, grid.Years, 20)
	assert.Equal(t, 2014, grid.Years[0])
	assert.Equal(t, 2033, grid.Years[19])
	require.Len(t, grid.Days, 35)
	assert.Equal(t, model.Date{Year: 2024, Month: time.April, Day: 28}, grid.Days[0].Date)
	assert.False(t, grid.Days[0].InMonth)
	assert.NotNil(t, grid.Days[0].Events)

	may1 := grid.Days[3]
	assert.True(t, may1.IsToday)
	assert.Len(t, may1.Events, 2)
	assert.Equal(t, []conflictPair{{A: "ev-1", B: "ev-2"}}, may1.Conflicts)

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/api/grid?date=May", "").StatusCode)
}

func TestGrid_DefaultsToToday(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	grid := decode[gridResponse](t, do(t, http.MethodGet, ts.URL+"/api/grid", ""))
	assert.Equal(t, model.Date{Year: 2024, Month: time.May, Day: 1}, grid.Reference)
}

func TestSearchAndFilters(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	for _, body := range []string{
		`{"title":"Team Meeting","date":"2024-05-01","startTime":"10:00","endTime":"11:00"}`,
		`{"title":"Lunch","date":"2024-05-01","startTime":"12:00","endTime":"13:00"}`,
		`{"title":"Team Retro","date":"2024-06-14","startTime":"15:00","endTime":"16:00"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, http.MethodPost, ts.URL+"/api/events", body).StatusCode)
	}

	titles := func(path string) []string {
		resp := do(t, http.MethodGet, ts.URL+path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		out := []string{}
		for _, e := range decode[eventsResponse](t, resp).Events {
			out = append(out, e.Title)
		}
		return out
	}

	assert.Empty(t, titles("/api/search?q="))
	assert.Equal(t, []string{"Team Meeting", "Team Retro"}, titles("/api/search?q=TEAM"))
	assert.Equal(t, []string{"Team Meeting", "Lunch"}, titles("/api/filter/month?month=5&year=2024"))
	assert.Equal(t, []string{"Team Retro"}, titles("/api/filter/range?from=2024-05-02&to=2024-06-14"))
	assert.Empty(t, titles("/api/filter/range?from=2024-05-01"))

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/api/filter/month?month=13&year=2024", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/api/filter/month?month=5", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/api/filter/range?from=yesterday&to=2024-01-01", "").StatusCode)

	today := decode[struct {
		Date   model.Date    `json:"date"`
		Events []model.Event `json:"events"`
	}](t, do(t, http.MethodGet, ts.URL+"/api/today", ""))
	assert.Equal(t, model.Date{Year: 2024, Month: time.May, Day: 1}, today.Date)
	assert.Len(t, today.Events, 2)
}

func TestNavigate(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	nav := func(query string) string {
		resp := do(t, http.MethodGet, ts.URL+"/api/navigate?"+query, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, query)
		return decode[navigateResponse](t, resp).Date.String()
	}

	assert.Equal(t, "2024-02-29", nav("date=2024-01-31&months=1"))
	assert.Equal(t, "2023-12-31", nav("date=2024-01-31&months=-1"))
	assert.Equal(t, "2024-06-30", nav("date=2024-05-31&month=6"))
	assert.Equal(t, "2023-02-28", nav("date=2024-02-29&year=2023"))
	assert.Equal(t, "2024-05-01", nav("date=1999-09-09&today=1"))
	assert.Equal(t, "2024-06-01", nav("months=1"))

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/api/navigate?month=0", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/api/navigate?months=x", "").StatusCode)
}

func TestCalendarPage(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	do(t, http.MethodPost, ts.URL+"/api/events", standup)
	do(t, http.MethodPost, ts.URL+"/api/events", syncEvent)

	resp := do(t, http.MethodGet, ts.URL+"/calendar?date=2024-05-10", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body := readAll(t, resp)
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "May 2024")
	assert.Contains(t, body, `href="/calendar?date=2024-04-10"`)
	assert.Contains(t, body, "Standup")
	assert.Contains(t, body, "ev conflict")
	assert.Equal(t, 35, strings.Count(body, "data-date="))
}

func TestCalendarICS(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	do(t, http.MethodPost, ts.URL+"/api/events", standup)

	resp := do(t, http.MethodGet, ts.URL+"/calendar.ics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")
	body := readAll(t, resp)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "SUMMARY:Standup")
	assert.Contains(t, body, "UID:ev-1")
}

func TestPreview(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Preview.Path = filepath.Join(t.TempDir(), "preview.png")
	ts, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/preview.png", "").StatusCode)

	require.NoError(t, os.WriteFile(cfg.Preview.Path, []byte("\x89PNG\r\n\x1a\n"), 0o644))
	resp := do(t, http.MethodGet, ts.URL+"/preview.png", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestRootRedirectsToCalendar(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, nil)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/calendar", resp.Header.Get("Location"))
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
