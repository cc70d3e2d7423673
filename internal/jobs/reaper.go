package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"framefuse/internal/config"
	"framefuse/internal/fileutil"
	"framefuse/internal/logging"
	"framefuse/internal/queue"
)

// Reaper reclaims job storage. One goroutine services a single delayed
// queue: periodic TTL sweeps that collect jobs past their lifetime, and
// per-job removals scheduled shortly after an artifact download.
type Reaper struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending []reapEntry
	wake    chan struct{}
}

type reapEntry struct {
	jobID string
	due   time.Time
}

// NewReaper wires the storage reclaimer against the job store.
func NewReaper(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Reaper {
	return &Reaper{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "reaper"),
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
}

// Schedule queues a job for removal after delay. Scheduling the same job
// twice is harmless; removal is idempotent.
func (r *Reaper) Schedule(jobID string, delay time.Duration) {
	r.mu.Lock()
	r.pending = append(r.pending, reapEntry{jobID: jobID, due: r.now().Add(delay)})
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run services the delayed queue until ctx is canceled. It blocks; callers
// start it on its own goroutine.
func (r *Reaper) Run(ctx context.Context) {
	interval := r.cfg.SweepInterval()
	nextSweep := r.now().Add(interval)

	for {
		timer := time.NewTimer(r.waitFor(nextSweep))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-r.wake:
			timer.Stop()
			continue
		case <-timer.C:
		}

		now := r.now()
		if !now.Before(nextSweep) {
			r.Sweep(ctx)
			nextSweep = now.Add(interval)
		}
		r.fireDue(ctx, now)
	}
}

// waitFor computes the sleep until the earliest of the next sweep and the
// earliest scheduled removal.
func (r *Reaper) waitFor(nextSweep time.Time) time.Duration {
	earliest := nextSweep
	r.mu.Lock()
	for _, entry := range r.pending {
		if entry.due.Before(earliest) {
			earliest = entry.due
		}
	}
	r.mu.Unlock()

	wait := earliest.Sub(r.now())
	if wait < 0 {
		return 0
	}
	return wait
}

// Sweep removes every job older than the configured TTL, regardless of
// status. It returns the number of jobs removed.
func (r *Reaper) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.cfg.JobTTL())
	expired, err := r.store.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error("list expired jobs", logging.Error(err))
		return 0
	}

	removed := 0
	for _, job := range expired {
		if r.removeJob(ctx, job.ID) {
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("sweep reclaimed jobs", logging.Int("count", removed))
	}
	return removed
}

// fireDue removes every scheduled job whose delay has elapsed.
func (r *Reaper) fireDue(ctx context.Context, now time.Time) {
	r.mu.Lock()
	var due []string
	remaining := r.pending[:0]
	for _, entry := range r.pending {
		if entry.due.After(now) {
			remaining = append(remaining, entry)
		} else {
			due = append(due, entry.jobID)
		}
	}
	r.pending = remaining
	r.mu.Unlock()

	for _, jobID := range due {
		r.removeJob(ctx, jobID)
	}
}

// removeJob deletes a job's work directory and record. Errors are logged and
// swallowed so one stubborn job cannot stall reclamation.
func (r *Reaper) removeJob(ctx context.Context, jobID string) bool {
	job, err := r.store.GetByID(ctx, jobID)
	if err != nil {
		r.logger.Error("load job for removal",
			logging.String(logging.FieldJobID, jobID), logging.Error(err))
		return false
	}
	if job == nil {
		return false
	}

	if err := fileutil.RemoveTree(job.WorkDir); err != nil {
		r.logger.Error("remove work directory",
			logging.String(logging.FieldJobID, jobID), logging.Error(err))
		// Keep the record so the next sweep retries the directory.
		return false
	}
	if _, err := r.store.Remove(ctx, jobID); err != nil {
		r.logger.Error("remove job record",
			logging.String(logging.FieldJobID, jobID), logging.Error(err))
		return false
	}

	r.logger.Info("job reclaimed", logging.String(logging.FieldJobID, jobID))
	return true
}
