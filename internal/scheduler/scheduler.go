package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/plogger/backend/internal/logger"
	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic background tasks for the lifetime of the process.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := cron.PrintfLogger(logger.GetLogger())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every registers task to run at a fixed interval (rounded down to whole seconds).
// A run still in progress causes the next tick to be skipped.
func (s *Scheduler) Every(interval time.Duration, name string, task func(ctx context.Context)) error {
	if interval < time.Second {
		return fmt.Errorf("interval for %s must be at least 1s, got %s", name, interval)
	}

	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		logger.Debug("Scheduled task triggered", map[string]interface{}{"task": name})
		task(s.ctx)
	}))

	logger.Info("Scheduled task registered", map[string]interface{}{
		"task":     name,
		"interval": interval.String(),
	})
	return nil
}

// Start begins running registered tasks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Scheduler started", map[string]interface{}{"tasks": len(s.cron.Entries())})
}

// Stop halts scheduling and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	logger.Info("Scheduler stopped", nil)
}

// IsRunning reports whether any task is registered.
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
