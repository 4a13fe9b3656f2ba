// Package workers runs the bounded pool that claims scan jobs and
// drives them through the pipeline. A periodic tick tops up in-flight
// work toward the pool size; crash recovery rides entirely on the
// queue's lock timeout.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"cardscan/internal/config"
	"cardscan/internal/logging"
	"cardscan/internal/metrics"
	"cardscan/internal/pipeline"
	"cardscan/internal/queue"
)

// Pool claims and executes jobs with bounded concurrency.
type Pool struct {
	cfg    config.Workers
	store  *queue.Store
	pipe   *pipeline.Pipeline
	logger *slog.Logger
	slots  chan struct{}
}

// New builds a Pool sized by the worker configuration.
func New(cfg config.Workers, store *queue.Store, pipe *pipeline.Pipeline, logger *slog.Logger) *Pool {
	count := cfg.Count
	if count <= 0 {
		count = 1
	}
	return &Pool{
		cfg:    cfg,
		store:  store,
		pipe:   pipe,
		logger: logging.NewComponentLogger(logger, "workers"),
		slots:  make(chan struct{}, count),
	}
}

// Run schedules the claim tick and blocks until ctx is cancelled. Jobs
// already in flight finish before Run returns.
func (p *Pool) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	interval := time.Duration(p.cfg.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		p.tick(groupCtx, group)
	})
	if err != nil {
		return fmt.Errorf("schedule claim tick: %w", err)
	}

	p.logger.Info("worker pool started",
		logging.Int("workers", cap(p.slots)),
		logging.Duration("poll_interval", interval))
	scheduler.Start()

	<-groupCtx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	p.logger.Info("worker pool stopped")
	return nil
}

// tick claims jobs until either capacity or the queue is exhausted.
func (p *Pool) tick(ctx context.Context, group *errgroup.Group) {
	p.reportQueueDepth(ctx)

	for {
		select {
		case p.slots <- struct{}{}:
		default:
			return
		}

		job, err := p.store.Claim(ctx, p.lockTimeout())
		if err != nil || job == nil {
			<-p.slots
			if err != nil && ctx.Err() == nil {
				p.logger.Error("claim failed", logging.Error(err))
			}
			return
		}

		group.Go(func() error {
			defer func() { <-p.slots }()
			p.execute(ctx, job)
			return nil
		})
	}
}

// ProcessOne claims and executes a single job synchronously. It reports
// whether a job was available.
func (p *Pool) ProcessOne(ctx context.Context) (bool, error) {
	job, err := p.store.Claim(ctx, p.lockTimeout())
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	p.execute(ctx, job)
	return true, nil
}

// execute runs the pipeline for a claimed job and persists the outcome.
// The source artifact is deleted afterwards in every case; a missing
// file is not an error.
func (p *Pool) execute(ctx context.Context, job *queue.Job) {
	logger := p.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int(logging.FieldAttempt, job.Attempts))
	logger.Info("processing scan", logging.String("file", job.FilePath))
	started := time.Now()

	result, outcome, err := p.pipe.Process(ctx, job)

	if removeErr := os.Remove(job.FilePath); removeErr != nil && !os.IsNotExist(removeErr) {
		logger.Debug("artifact cleanup failed", logging.Error(removeErr))
	}

	if err != nil {
		terminal := job.SetFailure(err.Error(), p.cfg.MaxAttempts)
		label := "requeued"
		if terminal {
			label = "failed"
			logger.Error("scan failed permanently", logging.Error(err))
		} else {
			logger.Warn("scan failed, will retry", logging.Error(err))
		}
		metrics.JobsProcessed.WithLabelValues(label).Inc()
	} else {
		job.SetDone(result)
		metrics.JobsProcessed.WithLabelValues(string(outcome)).Inc()
		logger.Info("scan finished",
			logging.String("outcome", string(outcome)),
			logging.String("name", result.GuessedName),
			logging.Duration("elapsed", time.Since(started)))
	}
	metrics.JobDuration.Observe(time.Since(started).Seconds())

	if updateErr := p.store.Update(ctx, job); updateErr != nil {
		logger.Error("failed to persist job outcome", logging.Error(updateErr))
	}
}

func (p *Pool) lockTimeout() time.Duration {
	timeout := time.Duration(p.cfg.LockTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return timeout
}

func (p *Pool) reportQueueDepth(ctx context.Context) {
	stats, err := p.store.Stats(ctx)
	if err != nil {
		return
	}
	metrics.QueueDepth.Set(float64(stats[queue.StatusQueued]))
}
