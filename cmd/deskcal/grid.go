package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"deskcal/internal/app"
	"deskcal/internal/calendar"
	"deskcal/internal/model"
)

var (
	gridDate   string
	gridMonths int
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	outStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	todayStyle    = lipgloss.NewStyle().Reverse(true)
	conflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print a month grid with its events",
	Long: `Print the month containing --date (default today) as a week grid.
Days with events are marked with *, days with overlapping events with !.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		ref, err := parseOptionalDate(gridDate)
		if err != nil {
			return err
		}
		ref = rt.cal.Navigate(ref, app.Navigation{Months: gridMonths})

		renderMonth(os.Stdout, ref, rt.cal.WeekStart(), rt.cal.MonthGrid(ref))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gridCmd)
	gridCmd.Flags().StringVar(&gridDate, "date", "", "Reference date (YYYY-MM-DD), default today")
	gridCmd.Flags().IntVar(&gridMonths, "months", 0, "Move the reference date by this many months")
}

// renderMonth writes the grid followed by the month's events, day by day.
func renderMonth(w io.Writer, ref model.Date, weekStart time.Weekday, cells []calendar.DayCell) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(ref.Time().Format("January 2006")))

	headers := make([]string, 7)
	for i := range headers {
		name := time.Weekday((int(weekStart) + i) % 7).String()[:3]
		headers[i] = headerStyle.Render(fmt.Sprintf("%4s", name))
	}
	_, _ = fmt.Fprintln(w, strings.Join(headers, ""))

	for _, week := range calendar.Weeks(cells) {
		var row strings.Builder
		for _, c := range week {
			row.WriteString(renderCell(c))
		}
		_, _ = fmt.Fprintln(w, row.String())
	}

	for _, c := range cells {
		if !c.InMonth || len(c.Events) == 0 {
			continue
		}
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, titleStyle.Render(c.Date.String()+" "+c.Date.Weekday().String()))
		for _, ev := range c.Events {
			line := fmt.Sprintf("  %s-%s  %s", ev.Start, ev.End, ev.Title)
			if inConflict(c.Conflicts, ev) {
				line = conflictStyle.Render(line + "  (overlaps)")
			}
			_, _ = fmt.Fprintln(w, line)
		}
	}
}

func renderCell(c calendar.DayCell) string {
	marker := " "
	switch {
	case len(c.Conflicts) > 0:
		marker = "!"
	case len(c.Events) > 0:
		marker = "*"
	}
	text := fmt.Sprintf("%3d", c.Date.Day)
	switch {
	case c.IsToday:
		text = todayStyle.Render(text)
	case !c.InMonth:
		text = outStyle.Render(text)
	}
	if marker == "!" {
		return text + conflictStyle.Render(marker)
	}
	return text + marker
}

func inConflict(cs []calendar.Conflict, ev model.Event) bool {
	return slices.ContainsFunc(cs, func(c calendar.Conflict) bool {
		return c.A.ID == ev.ID || c.B.ID == ev.ID
	})
}

func parseOptionalDate(s string) (model.Date, error) {
	if strings.TrimSpace(s) == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}
