package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"deskcal/internal/capture"
	appLog "deskcal/internal/log"
	"deskcal/internal/scheduler"
	"deskcal/internal/web"
)

var (
	serveListen string
	serveOnce   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calendar over HTTP and run background jobs",
	Long: `Start the HTTP API and month page, and run the scheduled jobs
(state save, ICS export, preview capture) on the configured cron spec.
With --once the jobs run a single time and the command exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if serveListen != "" {
			rt.cfg.Listen = serveListen
		}

		sched, err := buildScheduler(rt)
		if err != nil {
			return err
		}
		srv := web.NewServer(rt.cfg, rt.cal)

		if serveOnce {
			return runOnce(ctx, srv, sched)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})
		g.Go(func() error {
			sched.Start(gctx)
			return nil
		})
		err = g.Wait()

		// Last save so a clean shutdown loses nothing.
		if saveErr := rt.persist(); saveErr != nil {
			appLog.Error("final state save failed", saveErr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		appLog.Info("deskcal exiting")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
	serveCmd.Flags().BoolVar(&serveOnce, "once", false, "Run every scheduled job once and exit")
}

// buildScheduler registers the jobs the config asks for.
func buildScheduler(rt *runtime) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(rt.cfg.Snapshot, rt.loc)
	if err != nil {
		return nil, err
	}

	var jobs []scheduler.Job
	if rt.state != nil {
		jobs = append(jobs, scheduler.SaveStateJob(rt.store, rt.state, rt.seeded))
	}
	if rt.cfg.ICSExport != "" {
		jobs = append(jobs, scheduler.ExportICSJob(rt.store, rt.cfg.ICSExport, nil))
	}
	if rt.cfg.Preview.Enabled {
		jobs = append(jobs, scheduler.CapturePreviewJob(capture.Options{
			URL:        calendarURL(rt),
			OutputPath: rt.cfg.Preview.Path,
			Width:      rt.cfg.Preview.Width,
			Height:     rt.cfg.Preview.Height,
		}))
	}
	for _, j := range jobs {
		if err := sched.Add(j); err != nil {
			return nil, fmt.Errorf("register %s: %w", j.Name, err)
		}
	}
	return sched, nil
}

// runOnce serves HTTP only for as long as the jobs need it (the preview
// capture loads /calendar from this process).
func runOnce(ctx context.Context, srv *web.Server, sched *scheduler.Scheduler) error {
	srvCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx) }()
	waitHealthy(ctx, srv.Addr())

	jobErr := sched.RunAll(ctx)
	stop()
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(jobErr, err)
	}
	return jobErr
}

// waitHealthy polls /health until the server answers or a short deadline
// passes.
func waitHealthy(ctx context.Context, addr string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	client := &http.Client{Timeout: 500 * time.Millisecond}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/health", nil)
		if err != nil {
			return
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// calendarURL is the local /calendar address, with Basic Auth credentials
// embedded when auth is on.
func calendarURL(rt *runtime) string {
	u := url.URL{Scheme: "http", Host: rt.cfg.Listen, Path: "/calendar"}
	if rt.cfg.BasicAuthEnabled() {
		u.User = url.UserPassword(rt.cfg.BasicAuth.Username, rt.cfg.BasicAuth.Password)
	}
	return u.String()
}

// signalContext is canceled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
