// Package reaper removes stale files from the shared temp and output storage
// areas on a fixed period. No coordination with in-flight jobs is needed:
// their files are always younger than the retention threshold for the
// duration of a single job.
package reaper

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"clipforge/internal/pkg/logger"
)

const (
	DefaultRetention = time.Hour
	DefaultInterval  = 30 * time.Minute
)

type Reaper struct {
	dirs      []string
	retention time.Duration
	interval  time.Duration
	log       *logger.Logger
}

func New(dirs []string, retention, interval time.Duration, log *logger.Logger) *Reaper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Reaper{
		dirs:      dirs,
		retention: retention,
		interval:  interval,
		log:       log.WithComponent("reaper"),
	}
}

// Run sweeps on the configured period until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("reaper started",
		"dirs", r.dirs,
		"retention", r.retention.String(),
		"interval", r.interval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reaper stopped")
			return
		case <-ticker.C:
			removed := r.SweepOnce(time.Now())
			if removed > 0 {
				r.log.Info("sweep completed", "removed", removed)
			}
		}
	}
}

// SweepOnce deletes every regular file in the storage areas whose
// last-modified time is older than the retention threshold. Per-file failures
// are logged and do not abort the sweep.
func (r *Reaper) SweepOnce(now time.Time) int {
	removed := 0

	for _, dir := range r.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			r.log.Warn("sweep cannot read dir", "dir", dir, "error", err.Error())
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) <= r.retention {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				r.log.Warn("sweep delete failed", "path", path, "error", err.Error())
				continue
			}
			removed++
		}
	}

	return removed
}
