package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskcal/internal/model"
)

func date(y int, m time.Month, d int) model.Date {
	return model.Date{Year: y, Month: m, Day: d}
}

func TestBuildGrid_Properties(t *testing.T) {
	t.Parallel()

	for _, ws := range []time.Weekday{time.Sunday, time.Monday, time.Saturday} {
		for year := 2015; year <= 2030; year++ {
			for month := time.January; month <= time.December; month++ {
				ref := date(year, month, 15)
				days := BuildGrid(ref, ws)

				require.Zero(t, len(days)%7, "%s week start %s", ref, ws)
				require.Contains(t, []int{28, 35, 42}, len(days))
				assert.Equal(t, ws, days[0].Weekday())

				for d := ref.FirstOfMonth(); !d.After(ref.LastOfMonth()); d = d.AddDays(1) {
					require.Contains(t, days, d)
				}
				for i := 1; i < len(days); i++ {
					require.Equal(t, days[i-1].AddDays(1), days[i])
				}
			}
		}
	}
}

func TestBuildGrid_KnownMonths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ref       model.Date
		weekStart time.Weekday
		wantLen   int
		wantFirst model.Date
		wantLast  model.Date
	}{
		{
			// Feb 2015 starts on a Sunday and has 28 days.
			name: "four weeks", ref: date(2015, time.February, 10), weekStart: time.Sunday,
			wantLen: 28, wantFirst: date(2015, time.February, 1), wantLast: date(2015, time.February, 28),
		},
		{
			name: "five weeks", ref: date(2024, time.May, 1), weekStart: time.Sunday,
			wantLen: 35, wantFirst: date(2024, time.April, 28), wantLast: date(2024, time.June, 1),
		},
		{
			// Mar 2024 starts on a Friday and has 31 days.
			name: "six weeks", ref: date(2024, time.March, 31), weekStart: time.Sunday,
			wantLen: 42, wantFirst: date(2024, time.February, 25), wantLast: date(2024, time.April, 6),
		},
		{
			name: "monday start", ref: date(2024, time.May, 20), weekStart: time.Monday,
			wantLen: 35, wantFirst: date(2024, time.April, 29), wantLast: date(2024, time.June, 2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := BuildGrid(tt.ref, tt.weekStart)
			require.Len(t, days, tt.wantLen)
			assert.Equal(t, tt.wantFirst, days[0])
			assert.Equal(t, tt.wantLast, days[len(days)-1])
		})
	}
}

func TestMonthGrid_JoinsEventsAndConflicts(t *testing.T) {
	t.Parallel()

	day := date(2024, time.May, 1)
	events := []model.Event{
		{ID: "a", Title: "Standup", Date: day, Start: model.MustTime(9, 0), End: model.MustTime(9, 30)},
		{ID: "b", Title: "Sync", Date: day, Start: model.MustTime(9, 15), End: model.MustTime(9, 45)},
		{ID: "c", Title: "Lunch", Date: date(2024, time.May, 2), Start: model.MustTime(12, 0), End: model.MustTime(13, 0)},
		{ID: "d", Title: "Next year", Date: date(2025, time.May, 1), Start: model.MustTime(9, 0), End: model.MustTime(10, 0)},
		{ID: "e", Title: "Spill", Date: date(2024, time.April, 30), Start: model.MustTime(9, 0), End: model.MustTime(10, 0)},
	}

	cells := MonthGrid(day, time.Sunday, events, date(2024, time.May, 2))
	require.Len(t, cells, 35)

	byDate := make(map[model.Date]DayCell, len(cells))
	for _, c := range cells {
		byDate[c.Date] = c
	}

	may1 := byDate[day]
	assert.True(t, may1.InMonth)
	require.Len(t, may1.Events, 2)
	require.Len(t, may1.Conflicts, 1)
	assert.Equal(t, "a", may1.Conflicts[0].A.ID)
	assert.Equal(t, "b", may1.Conflicts[0].B.ID)

	may2 := byDate[date(2024, time.May, 2)]
	assert.True(t, may2.IsToday)
	assert.Len(t, may2.Events, 1)
	assert.Empty(t, may2.Conflicts)

	apr30 := byDate[date(2024, time.April, 30)]
	assert.False(t, apr30.InMonth)
	require.Len(t, apr30.Events, 1, "leading days of the grid still show their events")

	for _, c := range cells {
		for _, ev := range c.Events {
			assert.NotEqual(t, "d", ev.ID)
		}
	}
}

func TestWeeks(t *testing.T) {
	t.Parallel()

	rows := Weeks(BuildGrid(date(2024, time.March, 1), time.Sunday))
	require.Len(t, rows, 6)
	for _, r := range rows {
		assert.Len(t, r, 7)
		assert.Equal(t, time.Sunday, r[0].Weekday())
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	wd, err := ParseWeekday("Monday")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, wd)

	wd, err = ParseWeekday(" sat ")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, wd)

	_, err = ParseWeekday("funday")
	assert.Error(t, err)
}
