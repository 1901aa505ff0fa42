package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"deskcal/internal/calendar"
	"deskcal/internal/model"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Find events whose title contains QUERY (case-insensitive)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		printEvents(os.Stdout, rt.cal.Search(args[0]))
		return nil
	},
}

var (
	filterMonth int
	filterYear  int
	filterFrom  string
	filterTo    string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "List events by month/year or by an inclusive date range",
	Long: `List events dated in --month/--year, or between --from and --to
inclusive. With a range, both bounds are required for anything to match.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		byMonth := cmd.Flags().Changed("month") || cmd.Flags().Changed("year")
		byRange := cmd.Flags().Changed("from") || cmd.Flags().Changed("to")
		if byMonth == byRange {
			return errors.New("use either --month/--year or --from/--to")
		}
		if byMonth && (filterMonth < 1 || filterMonth > 12) {
			return fmt.Errorf("--month must be 1-12, got %d", filterMonth)
		}

		var from, to model.Date
		if byRange {
			var err error
			if from, err = parseOptionalDate(filterFrom); err != nil {
				return err
			}
			if to, err = parseOptionalDate(filterTo); err != nil {
				return err
			}
		}

		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		if byMonth {
			year := filterYear
			if !cmd.Flags().Changed("year") {
				year = rt.cal.Today().Year
			}
			printEvents(os.Stdout, rt.cal.FilterByMonthYear(time.Month(filterMonth), year))
			return nil
		}
		printEvents(os.Stdout, rt.cal.FilterByRange(from, to))
		return nil
	},
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "List today's events",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		_, _ = fmt.Fprintln(os.Stdout, titleStyle.Render("Today, "+rt.cal.Today().String()))
		printEvents(os.Stdout, rt.cal.TodayEvents())
		return nil
	},
}

var (
	conflictsDate  string
	conflictsMonth bool
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Report overlapping events on a day or across its month",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		ref, err := parseOptionalDate(conflictsDate)
		if err != nil {
			return err
		}
		if ref.IsZero() {
			ref = rt.cal.Today()
		}

		var pairs []calendar.Conflict
		if conflictsMonth {
			for _, c := range rt.cal.MonthGrid(ref) {
				if c.InMonth {
					pairs = append(pairs, c.Conflicts...)
				}
			}
		} else {
			pairs = rt.cal.ConflictsOn(ref)
		}
		printConflicts(os.Stdout, pairs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd, filterCmd, todayCmd, conflictsCmd)

	filterCmd.Flags().IntVar(&filterMonth, "month", 0, "Month 1-12")
	filterCmd.Flags().IntVar(&filterYear, "year", 0, "Year (default: current year)")
	filterCmd.Flags().StringVar(&filterFrom, "from", "", "First date (YYYY-MM-DD)")
	filterCmd.Flags().StringVar(&filterTo, "to", "", "Last date (YYYY-MM-DD)")

	conflictsCmd.Flags().StringVar(&conflictsDate, "date", "", "Day to check (YYYY-MM-DD), default today")
	conflictsCmd.Flags().BoolVar(&conflictsMonth, "month", false, "Check every day of the month containing --date")
}

func printEvents(w io.Writer, events []model.Event) {
	if len(events) == 0 {
		_, _ = fmt.Fprintln(w, dimStyle.Render("No events."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DATE\tTIME\tTITLE\tCOLOR\tID")
	for _, ev := range events {
		_, _ = fmt.Fprintf(tw, "%s\t%s-%s\t%s\t%s\t%s\n", ev.Date, ev.Start, ev.End, ev.Title, ev.Color, ev.ID)
	}
	_ = tw.Flush()
}

func printConflicts(w io.Writer, pairs []calendar.Conflict) {
	if len(pairs) == 0 {
		_, _ = fmt.Fprintln(w, dimStyle.Render("No conflicts."))
		return
	}
	for _, p := range pairs {
		_, _ = fmt.Fprintln(w, conflictStyle.Render(fmt.Sprintf("%s  %s %s-%s  overlaps  %s %s-%s",
			p.A.Date, p.A.Title, p.A.Start, p.A.End, p.B.Title, p.B.Start, p.B.End)))
	}
}
