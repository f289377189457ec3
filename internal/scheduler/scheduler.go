package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler fires a job on a cron schedule with second precision.
//
// A run is started on every tick even if the previous one has not returned; jobs must be safe
// to overlap. Panics inside a job are recovered and logged.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   context.Context
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a schedule expression: five or six fields, or a descriptor like "@every 30s".
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return schedule, nil
}

func New(spec string, job func(), logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))

	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.cron.Start()
		s.logger.Info("scheduler started", "next_run", s.cron.Entries()[0].Next)
	})
}

// Stop prevents new runs and waits for running ones until ctx is done. Safe to call more than once.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.stopped = s.cron.Stop()
	})

	select {
	case <-s.stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
