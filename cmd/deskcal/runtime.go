package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"deskcal/internal/app"
	"deskcal/internal/bootstrap"
	"deskcal/internal/calendar"
	"deskcal/internal/clock"
	"deskcal/internal/config"
	"deskcal/internal/ics"
	appLog "deskcal/internal/log"
	"deskcal/internal/model"
	"deskcal/internal/state"
	"deskcal/internal/store"
)

// runtime is everything a command needs once config is loaded and the
// store is seeded.
type runtime struct {
	cfg   *config.Config
	loc   *time.Location
	store *store.EventStore
	cal   *app.Calendar
	state *state.File

	// seeded is the store version right after seeding; the state file
	// already holds (or does not need) that version.
	seeded uint64
}

// openRuntime loads config and seeds the store: from the state file when
// one has been saved, otherwise from the bootstrap dataset plus the
// configured ICS subscriptions.
func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		lvl, _ := appLog.ParseLevel(cfg.LogLevel)
		appLog.SetLevel(lvl)
	}

	rt := &runtime{
		cfg:   cfg,
		loc:   resolveLocationOrLocal(cfg.Timezone),
		store: store.New(),
	}
	weekStart, _ := calendar.ParseWeekday(cfg.WeekStart)
	rt.cal = app.NewCalendar(rt.store, clock.NewSystem(rt.loc), app.WithWeekStart(weekStart))

	if cfg.StatePath != "" {
		rt.state, err = state.Open(cfg.StatePath)
		if err != nil {
			return nil, err
		}
	}

	if err := rt.seed(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	rt.seeded = rt.store.Snapshot().Version

	appLog.Info("effective config",
		"config", configPath,
		"listen", cfg.Listen,
		"timezone", rt.loc.String(),
		"week_start", cfg.WeekStart,
		"state_path", cfg.StatePath,
		"ics_sources", len(cfg.ICSSources),
		"events", len(rt.store.Snapshot().Events),
	)
	return rt, nil
}

func (rt *runtime) seed(ctx context.Context) error {
	if rt.state != nil {
		saved, err := rt.state.Load()
		if err != nil {
			return err
		}
		if saved != nil {
			appLog.Info("restoring saved state", "version", saved.Version, "saved_at", saved.SavedAt, "events", len(saved.Events))
			return rt.store.Replace(saved.Events)
		}
	}

	res, err := bootstrap.LoadFile(rt.cfg.Bootstrap)
	if err != nil {
		return err
	}
	for _, skipped := range res.Skipped {
		appLog.Warn("bootstrap record skipped", "reason", skipped.Error())
	}

	events := append([]model.Event(nil), res.Events...)
	events = append(events, rt.fetchSubscriptions(ctx)...)
	return rt.store.Replace(events)
}

func (rt *runtime) fetchSubscriptions(ctx context.Context) []model.Event {
	if len(rt.cfg.ICSSources) == 0 {
		return nil
	}
	sources := make([]ics.Source, 0, len(rt.cfg.ICSSources))
	for _, s := range rt.cfg.ICSSources {
		if s.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: s.ID, URL: s.URL, Color: s.Color})
	}

	fetcher := ics.NewFetcher(rt.cfg.ICSCacheDir, &http.Client{Timeout: 30 * time.Second})
	results, errs := fetcher.FetchAll(ctx, sources)
	if len(errs) > 0 {
		appLog.Error("one or more ICS fetches failed", errors.Join(errs...), "error_count", len(errs))
	}
	return ics.ImportFeeds(results)
}

// persist saves the store right away; commands that mutate events call it
// before exiting.
func (rt *runtime) persist() error {
	if rt.state == nil {
		return nil
	}
	snap := rt.store.Snapshot()
	if snap.Version == rt.seeded {
		return nil
	}
	if err := rt.state.Save(snap.Version, snap.Events); err != nil {
		return err
	}
	rt.seeded = snap.Version
	return nil
}

func (rt *runtime) Close() {
	if rt.state == nil {
		return
	}
	if err := rt.state.Close(); err != nil {
		appLog.Error("failed to close state file", err)
	}
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
