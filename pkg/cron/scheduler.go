// Package cron runs the watch pipeline's background jobs on robfig/cron:
// periodic drop-folder sweeps and a daily usage-log prune.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/statement-ledger/internal/domain/ingest"
	"github.com/FACorreiaa/statement-ledger/internal/domain/usage"
)

// Config carries the job schedules in the standard 5-field cron format
// (the @every duration shorthand also works).
type Config struct {
	// SweepSchedule fires the drop-folder sweep. Default "@every 1m".
	SweepSchedule string
	// PruneSchedule fires the usage-log prune. Default "0 3 * * *".
	PruneSchedule string
	// RetentionDays bounds the usage log. Events feed the monthly quota,
	// so anything below a full month would forget live consumption;
	// values that low are raised to 31. Default 90.
	RetentionDays int
}

// Scheduler manages the background jobs of a watch process.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *ingest.Sweeper
	tracker *usage.Tracker // Optional: nil skips the prune job
	logger  *slog.Logger
	cfg     Config
}

// NewScheduler creates a job scheduler around the sweeper and usage log.
func NewScheduler(sweeper *ingest.Sweeper, tracker *usage.Tracker, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = "@every 1m"
	}
	if cfg.PruneSchedule == "" {
		cfg.PruneSchedule = "0 3 * * *"
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if cfg.RetentionDays < 31 {
		cfg.RetentionDays = 31
	}

	// Seconds disabled: standard 5-field format.
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:    c,
		sweeper: sweeper,
		tracker: tracker,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start registers the jobs and begins ticking.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.sweepDropFolder); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.cfg.SweepSchedule, err)
	}
	if s.tracker != nil {
		if _, err := s.cron.AddFunc(s.cfg.PruneSchedule, s.pruneUsageLog); err != nil {
			return fmt.Errorf("schedule usage prune %q: %w", s.cfg.PruneSchedule, err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("sweep", s.cfg.SweepSchedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs. The returned context is done
// once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers an immediate sweep so files already waiting in the drop
// folder are not held until the first tick.
func (s *Scheduler) RunNow() {
	go s.sweepDropFolder()
}

func (s *Scheduler) sweepDropFolder() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	res, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("drop folder sweep failed", slog.Any("error", err))
		return
	}
	if res.Scanned == 0 {
		return
	}
	s.logger.Info("drop folder sweep finished",
		slog.Int("scanned", res.Scanned),
		slog.Int("processed", res.Processed),
		slog.Int("failed", res.Failed),
		slog.Int("deferred", res.Deferred),
	)
}

func (s *Scheduler) pruneUsageLog() {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	removed := s.tracker.PruneBefore(cutoff)
	s.logger.Info("usage log pruned",
		slog.Time("cutoff", cutoff),
		slog.Int("removed", removed),
	)
}
