// Package daemon coordinates the scan ingestion service: the worker
// pool, the HTTP ingest API, and single-instance enforcement.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cardscan/internal/config"
	"cardscan/internal/inventory"
	"cardscan/internal/logging"
	"cardscan/internal/queue"
	"cardscan/internal/workers"
)

// Daemon owns the background services and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	inv    *inventory.Store
	pool   *workers.Pool

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	poolWG  sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                 `json:"running"`
	PID          int                  `json:"pid"`
	QueueDBPath  string               `json:"queueDbPath"`
	LockFilePath string               `json:"lockFilePath"`
	Queue        map[queue.Status]int `json:"queue"`
	TotalCopies  int                  `json:"totalCopies"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, inv *inventory.Store, pool *workers.Pool, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || inv == nil || pool == nil {
		return nil, errors.New("daemon requires config, stores, and worker pool")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "cardscand.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		inv:      inv,
		pool:     pool,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock, launches the worker pool, and
// brings up the ingest API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cardscan daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.poolWG.Add(1)
	go func() {
		defer d.poolWG.Done()
		if err := d.pool.Run(d.ctx); err != nil {
			d.logger.Error("worker pool exited", logging.Error(err))
		}
	}()

	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		d.poolWG.Wait()
		_ = d.lock.Unlock()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("cardscan daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Wait blocks until the daemon's context is cancelled and in-flight
// work has drained.
func (d *Daemon) Wait() {
	if d.ctx != nil {
		<-d.ctx.Done()
	}
	d.poolWG.Wait()
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.poolWG.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cardscan daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound API address, or empty when the API is not
// listening.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Submit stores an uploaded scan and enqueues its job.
func (d *Daemon) Submit(ctx context.Context, req queue.NewJob) (*queue.Job, error) {
	job, err := d.store.Enqueue(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("enqueue scan: %w", err)
	}
	d.logger.Info("scan queued",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("original_name", job.OriginalName))
	return job, nil
}

// ListJobs returns jobs filtered by optional statuses, newest first.
func (d *Daemon) ListJobs(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error) {
	return d.store.List(ctx, 0, statuses...)
}

// GetJob fetches one job by identifier.
func (d *Daemon) GetJob(ctx context.Context, id int64) (*queue.Job, error) {
	return d.store.GetByID(ctx, id)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		stats = map[queue.Status]int{}
	}
	copies, err := d.inv.TotalCopies(ctx)
	if err != nil {
		copies = 0
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Queue:        stats,
		TotalCopies:  copies,
	}
}
