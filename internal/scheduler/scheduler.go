// Package scheduler runs the periodic Best Odds refresh.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler manages cron-driven refresh jobs.
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a scheduler. Overlapping runs of the same job are skipped.
func NewScheduler(logger *logrus.Logger, jobTimeout time.Duration) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:          logger.WithField("component", "scheduler"),
		jobIDs:          make([]cron.EntryID, 0),
		jobTimeout:      jobTimeout,
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleBestOddsRefresh runs job on the given cron expression.
func (s *Scheduler) ScheduleBestOddsRefresh(cronExpression string, job Job) error {
	return s.schedule("best_odds_refresh", cronExpression, job)
}

func (s *Scheduler) schedule(name, cronExpression string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	log := s.logger.WithField("job", name)
	entryID, err := s.cron.AddFunc(cronExpression, func() {
		s.runJob(log, job)
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	log.WithField("cron", cronExpression).Info("Scheduled job")

	return nil
}

func (s *Scheduler) runJob(log *logrus.Entry, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		log.WithError(err).Error("Scheduled job failed")
		return
	}
	log.WithField("duration", time.Since(start).String()).Info("Scheduled job completed")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop waits for running jobs to finish, up to the graceful timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	timer := time.NewTimer(s.gracefulTimeout)
	defer timer.Stop()

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-timer.C:
		return errors.New("timed out waiting for scheduled jobs to finish")
	}
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}
