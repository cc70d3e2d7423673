package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"framefuse/internal/config"
	"framefuse/internal/jobs"
	"framefuse/internal/logging"
	"framefuse/internal/queue"
)

// Daemon coordinates the encode orchestrator, the storage reaper, and the
// HTTP API, and enforces single-instance execution through a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *queue.Store
	manager *jobs.Manager
	reaper  *jobs.Reaper
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Jobs         queue.HealthSummary
	JobDBPath    string
	LockFilePath string
	APIAddress   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, manager *jobs.Manager, reaper *jobs.Reaper, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil || reaper == nil {
		return nil, errors.New("daemon requires config, store, manager, and reaper")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "framefused.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		manager:  manager,
		reaper:   reaper,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, manager, store, d.logger)
	return d, nil
}

// Start acquires the instance lock and launches the reaper and the API
// server. It returns once both are running.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another framefuse daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	go d.reaper.Run(d.ctx)

	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		_ = d.lock.Unlock()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("framefuse daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()))
	return nil
}

// Stop shuts down the API, waits for in-flight encodes to record their
// outcome, and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
	}
	d.manager.Close()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release lock", logging.Error(err))
	}
	d.running.Store(false)
	d.ctx = nil
	d.cancel = nil
	d.logger.Info("framefuse daemon stopped")
}

// Running reports whether Start has completed and Stop has not.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status summarizes daemon runtime state for diagnostics.
func (d *Daemon) Status(ctx context.Context) Status {
	health, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("collect job health", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		Jobs:         health,
		JobDBPath:    d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
	}
}
