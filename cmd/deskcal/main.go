package main

import (
	"os"

	"github.com/spf13/cobra"

	appLog "deskcal/internal/log"
)

const version = "0.1.0"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "deskcal",
	Short: "A personal month calendar with conflict detection",
	Long: `deskcal keeps a small collection of timed events, renders month grids
with overlapping events flagged, and serves them over HTTP, as an
iCalendar feed and as a PNG preview.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			if lvl, ok := appLog.ParseLevel(logLevel); ok {
				appLog.SetLevel(lvl)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log_level from the config (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		appLog.Error("deskcal failed", err)
		os.Exit(1)
	}
}
