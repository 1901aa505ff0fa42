package scheduler

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"deskcal/internal/capture"
	"deskcal/internal/ics"
	appLog "deskcal/internal/log"
	"deskcal/internal/model"
	"deskcal/internal/store"
)

// SnapshotSource yields the current store snapshot.
type SnapshotSource interface {
	Snapshot() *store.Snapshot
}

// StateSaver persists a versioned event collection.
type StateSaver interface {
	Save(version uint64, events []model.Event) error
}

// SaveStateJob writes the store to saver whenever its version has moved
// since the last successful save. lastSaved seeds the comparison, e.g. with
// the version that was just restored at startup.
func SaveStateJob(src SnapshotSource, saver StateSaver, lastSaved uint64) Job {
	var mu sync.Mutex
	return Job{
		Name: "save-state",
		Run: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()

			snap := src.Snapshot()
			if snap.Version == lastSaved {
				return nil
			}
			if err := saver.Save(snap.Version, snap.Events); err != nil {
				return err
			}
			appLog.Info("state saved", "version", snap.Version, "events", len(snap.Events))
			lastSaved = snap.Version
			return nil
		},
	}
}

// ExportICSJob rewrites path with the whole calendar when the store version
// has changed since the last export.
func ExportICSJob(src SnapshotSource, path string, now func() time.Time) Job {
	var (
		mu       sync.Mutex
		exported bool
		lastVer  uint64
	)
	if now == nil {
		now = time.Now
	}
	return Job{
		Name: "export-ics",
		Run: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()

			snap := src.Snapshot()
			if exported && snap.Version == lastVer {
				return nil
			}
			var buf bytes.Buffer
			if err := ics.Export(&buf, snap.Events, ics.DefaultProdID, now()); err != nil {
				return err
			}
			if err := writeFileAtomic(path, buf.Bytes()); err != nil {
				return err
			}
			exported, lastVer = true, snap.Version
			appLog.Info("ics exported", "path", path, "version", snap.Version, "events", len(snap.Events))
			return nil
		},
	}
}

// CapturePreviewJob refreshes the PNG preview of the month page.
func CapturePreviewJob(opts capture.Options) Job {
	return Job{
		Name: "capture-preview",
		Run: func(ctx context.Context) error {
			return capture.CalendarPNG(ctx, opts)
		},
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
