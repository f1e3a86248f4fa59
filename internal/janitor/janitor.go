// Package janitor bounds the lifetime of temporary storage: it periodically
// removes downloaded files older than the retention window and prunes stale
// finished job records.
package janitor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/Ethica-Project/EthicaDL/internal/download"
	"github.com/Ethica-Project/EthicaDL/internal/logging"
)

// Janitor sweeps the downloads directory on an interval
type Janitor struct {
	dir       string
	retention time.Duration
	interval  time.Duration
	jobs      download.JobPruner
	logger    logging.Logger
}

// New creates a janitor for dir. jobs may be nil when no bookkeeping is
// needed (tests).
func New(dir string, retention, interval time.Duration, jobs download.JobPruner, logger logging.Logger) *Janitor {
	return &Janitor{
		dir:       dir,
		retention: retention,
		interval:  interval,
		jobs:      jobs,
		logger:    logger,
	}
}

// Run sweeps on the configured interval until ctx is cancelled
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := j.Sweep(time.Now())
			if err != nil {
				j.logger.Error(ctx, "cleanup sweep failed", "err", err)
				continue
			}
			if removed > 0 {
				j.logger.Info(ctx, "cleanup sweep removed files", "count", removed)
			}
		}
	}
}

// Sweep removes every file in the downloads directory whose modification
// time is older than the retention window, and returns how many were
// removed. Job records for removed files are marked reclaimed; finished
// records past retention are pruned.
func (j *Janitor) Sweep(now time.Time) (int, error) {
	cutoff := now.Add(-j.retention)

	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(j.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			continue
		}
		removed++
		if j.jobs != nil {
			j.jobs.MarkFileReclaimed(path)
		}
	}

	if j.jobs != nil {
		j.jobs.PruneFinished(cutoff)
	}

	return removed, nil
}
