package main

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"deskcal/internal/capture"
	"deskcal/internal/ics"
	appLog "deskcal/internal/log"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all events as an iCalendar feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		var buf bytes.Buffer
		if err := ics.Export(&buf, rt.cal.Events(), ics.DefaultProdID, time.Now()); err != nil {
			return err
		}
		if exportOut == "" || exportOut == "-" {
			_, err = io.Copy(os.Stdout, &buf)
			return err
		}
		if err := os.WriteFile(exportOut, buf.Bytes(), 0o644); err != nil {
			return err
		}
		appLog.Info("ics exported", "path", exportOut, "events", len(rt.cal.Events()))
		return nil
	},
}

var captureOpts capture.Options

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Screenshot a running deskcal /calendar page to PNG",
	Long: `Load --url in headless Chromium, wait for the month grid to render and
save a PNG. Defaults come from the config (listen address, preview path).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := captureOpts
		if opts.URL == "" {
			opts.URL = calendarURL(rt)
		}
		if opts.OutputPath == "" {
			opts.OutputPath = rt.cfg.Preview.Path
		}
		if opts.Width == 0 {
			opts.Width = rt.cfg.Preview.Width
		}
		if opts.Height == 0 {
			opts.Height = rt.cfg.Preview.Height
		}
		return capture.CalendarPNG(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, captureCmd)
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "-", "Output file, - for stdout")

	captureCmd.Flags().StringVar(&captureOpts.URL, "url", "", "Page to capture (default: this instance's /calendar)")
	captureCmd.Flags().StringVarP(&captureOpts.OutputPath, "output", "o", "", "PNG path (default: preview.path)")
	captureCmd.Flags().IntVar(&captureOpts.Width, "width", 0, "Viewport width")
	captureCmd.Flags().IntVar(&captureOpts.Height, "height", 0, "Viewport height")
	captureCmd.Flags().DurationVar(&captureOpts.Timeout, "timeout", capture.DefaultTimeout, "Overall capture timeout")
}
