// Package scheduler runs the pipeline on a cron schedule for local daemon
// mode. Each tick re-checks artifact freshness, so a manual run between
// ticks is not repeated.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-prophet/internal/artifact"
	"github.com/yourusername/stock-prophet/internal/metrics"
	"github.com/yourusername/stock-prophet/internal/pipeline"
)

const runTimeout = 30 * time.Minute

// Scheduler manages the recurring pipeline job.
type Scheduler struct {
	cron         *cron.Cron
	pipeline     *pipeline.Pipeline
	artifactPath string
	maxAge       time.Duration
	logger       *logrus.Entry
	mu           sync.RWMutex
	isRunning    bool
	jobID        cron.EntryID
	scheduled    bool
}

// New creates a scheduler around a pipeline. maxAge gates each tick: a
// fresh-enough artifact skips the run.
func New(p *pipeline.Pipeline, artifactPath string, maxAge time.Duration, logger *logrus.Entry) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithLocation(time.UTC)),
		pipeline:     p,
		artifactPath: artifactPath,
		maxAge:       maxAge,
		logger:       logger,
	}
}

// Schedule registers the pipeline job with a cron expression.
func (s *Scheduler) Schedule(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		now := time.Now().UTC()
		if artifact.DecideFromFile(s.artifactPath, now, s.maxAge) == artifact.Reuse {
			metrics.RecordRun("skipped", 0)
			s.logger.Info("Artifact still fresh, skipping scheduled run")
			return
		}

		if err := s.pipeline.Run(ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled run failed")
		}
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobID = entryID
	s.scheduled = true
	s.logger.WithField("cron", cronExpression).Info("Scheduled pipeline job")
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if !s.scheduled {
		return fmt.Errorf("no job scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the time of the next scheduled run, zero when idle.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}
	entry := s.cron.Entry(s.jobID)
	if !entry.Valid() {
		return time.Time{}
	}
	return entry.Next
}
