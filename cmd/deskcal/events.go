package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"deskcal/internal/ics"
	appLog "deskcal/internal/log"
	"deskcal/internal/model"
)

var errNoState = errors.New("state_path is not configured; changes would be lost on exit")

var eventFlags model.Record

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an event",
	Example: `  deskcal add --title Standup --date 2024-05-01 --start 09:00 --end 09:30
  deskcal add --title Review --date 2024-05-02 --start 14:00 --end 15:00 --color "#ef4444"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := eventFlags.Event()
		if err != nil {
			return err
		}
		return mutate(cmd, func(rt *runtime) error {
			added, err := rt.cal.AddEvent(ev)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "Added %s\n", added.ID)
			return nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Replace every field of an event, keeping its id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := eventFlags.Event()
		if err != nil {
			return err
		}
		return mutate(cmd, func(rt *runtime) error {
			if _, err := rt.cal.UpdateEvent(args[0], ev); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "Updated %s\n", args[0])
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm"},
	Short:   "Remove an event",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, func(rt *runtime) error {
			if err := rt.cal.RemoveEvent(args[0]); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(os.Stdout, "Removed %s\n", args[0])
			return nil
		})
	},
}

var importColor string

var importCmd = &cobra.Command{
	Use:   "import FILE.ics",
	Short: "Add the timed single-day events of an iCalendar file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		res, err := ics.Import(body, importColor)
		if err != nil {
			return err
		}
		for _, skipped := range res.Skipped {
			appLog.Warn("import: vevent skipped", "file", args[0], "reason", skipped.Error())
		}
		return mutate(cmd, func(rt *runtime) error {
			for _, ev := range res.Events {
				if _, err := rt.cal.AddEvent(ev); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(os.Stdout, "Imported %d events (%d skipped)\n", len(res.Events), len(res.Skipped))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(addCmd, updateCmd, removeCmd, importCmd)

	for _, c := range []*cobra.Command{addCmd, updateCmd} {
		c.Flags().StringVar(&eventFlags.Title, "title", "", "Event title")
		c.Flags().StringVar(&eventFlags.Date, "date", "", "Date (YYYY-MM-DD)")
		c.Flags().StringVar(&eventFlags.StartTime, "start", "", "Start time (HH:MM)")
		c.Flags().StringVar(&eventFlags.EndTime, "end", "", "End time (HH:MM)")
		c.Flags().StringVar(&eventFlags.Color, "color", "", "Color (#RRGGBB)")
		_ = c.MarkFlagRequired("title")
		_ = c.MarkFlagRequired("date")
		_ = c.MarkFlagRequired("start")
		_ = c.MarkFlagRequired("end")
	}
	importCmd.Flags().StringVar(&importColor, "color", model.DefaultColor, "Color for events without a COLOR property")
}

// mutate opens the runtime, applies fn and saves the result.
func mutate(cmd *cobra.Command, fn func(rt *runtime) error) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.state == nil {
		return errNoState
	}
	if err := fn(rt); err != nil {
		return err
	}
	return rt.persist()
}
