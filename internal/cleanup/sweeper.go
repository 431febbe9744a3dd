// Package cleanup enforces the retention window: expired jobs lose their
// uploaded file, generated outputs, and database row. The per-job chat
// counter expires on its own Redis TTL.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/usmanhx/labinsight/internal/storage"
	"github.com/usmanhx/labinsight/internal/store"
)

// Sweeper periodically hard-deletes expired jobs.
type Sweeper struct {
	store    store.Store
	layout   *storage.Layout
	interval time.Duration
}

func NewSweeper(st store.Store, layout *storage.Layout, interval time.Duration) *Sweeper {
	return &Sweeper{store: st, layout: layout, interval: interval}
}

// Run sweeps on a ticker until ctx is cancelled. One sweep runs immediately
// on startup so a restart does not extend retention.
func (s *Sweeper) Run(ctx context.Context) {
	slog.Info("cleanup sweeper started", "interval", s.interval)
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep deletes every job whose expiry has passed. Returns how many jobs were
// removed. Per-job failures are logged and skipped so one bad row cannot
// wedge retention for everyone.
func (s *Sweeper) Sweep(ctx context.Context) int {
	jobs, err := s.store.ListExpiredJobs(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("list expired jobs", "error", err)
		return 0
	}
	if len(jobs) == 0 {
		return 0
	}

	removed := 0
	for _, job := range jobs {
		if err := s.layout.Remove(job.JobID, job.FilePath); err != nil {
			slog.Error("remove job files", "job_id", job.JobID, "error", err)
			continue
		}
		if err := s.store.DeleteJob(ctx, job.ID); err != nil {
			slog.Error("delete job row", "job_id", job.JobID, "error", err)
			continue
		}
		removed++
	}

	slog.Info("cleanup sweep finished", "expired", len(jobs), "removed", removed)
	return removed
}
