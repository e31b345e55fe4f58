package runner

import (
	"errors"
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/infrastructure/logger"
)

// Starter starts a run for a trigger. *Runner satisfies it.
type Starter interface {
	Start(trigger string) (string, error)
}

// Scheduler fires scheduled runs from a cron expression
type Scheduler struct {
	cron     gocron.Scheduler
	starter  Starter
	schedule string
	logger   *zap.Logger
}

// NewScheduler registers the cron job. An empty schedule disables scheduling and
// returns a nil Scheduler.
func NewScheduler(starter Starter, schedule string, log *zap.Logger) (*Scheduler, error) {
	if schedule == "" {
		return nil, nil
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{
		cron:     cron,
		starter:  starter,
		schedule: schedule,
		logger:   logger.OrNop(log).Named("scheduler"),
	}

	_, err = cron.NewJob(
		gocron.CronJob(schedule, false),
		gocron.NewTask(s.trigger),
	)
	if err != nil {
		_ = cron.Shutdown()
		return nil, fmt.Errorf("failed to schedule sync job %q: %w", schedule, err)
	}

	return s, nil
}

// Start begins firing jobs
func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("scheduled sync enabled", zap.String("schedule", s.schedule))
}

// Shutdown stops the scheduler; a run already started is not affected
func (s *Scheduler) Shutdown() error {
	if s == nil {
		return nil
	}
	return s.cron.Shutdown()
}

// trigger starts a scheduled run; an active run wins and the tick is dropped
func (s *Scheduler) trigger() {
	runID, err := s.starter.Start(TriggerScheduled)
	if errors.Is(err, domain.ErrRunInProgress) {
		s.logger.Warn("scheduled sync skipped, a run is already in progress")
		return
	}
	if err != nil {
		s.logger.Error("scheduled sync failed to start", zap.Error(err))
		return
	}
	s.logger.Info("scheduled sync started", zap.String("run_id", runID))
}
