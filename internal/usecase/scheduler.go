package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"NewsPublisher/internal/ports"
)

// Task names as registered with the scheduler driver.
const (
	TaskPublish = "publish"
	TaskReport  = "email-report"
	TaskRemix   = "remix"
	TaskStats   = "stats-collection"
)

// Schedule lists the daily fire times (HH:MM) of each task.
type Schedule struct {
	PublishTimes []string
	ReportTimes  []string
	RemixTimes   []string
	StatsTimes   []string
}

// Tasks groups the task bodies; nil tasks are not registered.
type Tasks struct {
	Pipeline *Pipeline
	Report   *ReportTask
	Stats    *StatsTask
	Remix    *RemixTask
}

// Scheduler wires the wall-clock driver with the task bodies.
type Scheduler struct {
	driver   ports.Scheduler
	schedule Schedule
	tasks    Tasks
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, schedule Schedule, tasks Tasks, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, schedule: schedule, tasks: tasks, logger: logger}
}

// Start registers every task with the driver and starts it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	if p := s.tasks.Pipeline; p != nil {
		if err := s.register(TaskPublish, s.schedule.PublishTimes, func(ctx context.Context) {
			summary := p.Run(ctx)
			s.logger.Info("publish task finished", "clients", len(summary.Results), "took", summary.FinishedAt.Sub(summary.StartedAt), "error", summary.Err)
		}); err != nil {
			return err
		}
	}

	if r := s.tasks.Report; r != nil {
		if err := s.register(TaskReport, s.schedule.ReportTimes, func(ctx context.Context) {
			summary, err := r.Run(ctx)
			s.logger.Info("report task finished", "sent", summary.Sent, "skipped", summary.Skipped, "failed", summary.Failed, "error", err)
		}); err != nil {
			return err
		}
	}

	if r := s.tasks.Remix; r != nil {
		if err := s.register(TaskRemix, s.schedule.RemixTimes, func(ctx context.Context) {
			summary, err := r.Run(ctx)
			s.logger.Info("remix task finished", "topic", summary.Topic, "queries", len(summary.Queries), "error", err)
		}); err != nil {
			return err
		}
	}

	if st := s.tasks.Stats; st != nil {
		if err := s.register(TaskStats, s.schedule.StatsTimes, func(ctx context.Context) {
			summary, err := st.Run(ctx)
			s.logger.Info("stats task finished", "collected", summary.Collected, "duplicate", summary.Duplicate, "failed", summary.Failed, "error", err)
		}); err != nil {
			return err
		}
	}

	return s.driver.Start(ctx)
}

func (s *Scheduler) register(name string, times []string, job func(context.Context)) error {
	if len(times) == 0 {
		s.logger.Warn("task has no fire times, not scheduled", "task", name)
		return nil
	}
	if err := s.driver.Register(name, times, job); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	s.logger.Info("task scheduled", "task", name, "times", times)
	return nil
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
