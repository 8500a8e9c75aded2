package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/neso-solar-consumer/internal/pipeline"
)

// DefaultSchedule runs the consumer every 30 minutes, once per settlement period.
const DefaultSchedule = "*/30 * * * *"

// Runner executes one consumer pass.
type Runner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

type Scheduler struct {
	ctx        context.Context
	runner     Runner
	schedule   string
	runTimeout time.Duration
	logger     *logrus.Logger
	cron       *cron.Cron
}

func NewScheduler(ctx context.Context, runner Runner, schedule string, runTimeout time.Duration, logger *logrus.Logger) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	cronLogger := cron.PrintfLogger(logger)
	return &Scheduler{
		ctx:        ctx,
		runner:     runner,
		schedule:   schedule,
		runTimeout: runTimeout,
		logger:     logger,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}
}

// Start the scheduler
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.runOnce)
	if err != nil {
		return err
	}
	s.logger.WithField("schedule", s.schedule).Info("Scheduler started")
	s.cron.Start()
	return nil
}

// runOnce runs the consumer with a bounded context
func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	res, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("run_id", res.RunID).Error("Scheduled run failed")
	}
}

// Stop the scheduler and wait for a running pass to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
