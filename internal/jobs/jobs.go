// Package jobs runs the periodic housekeeping tasks of the server on a cron
// schedule.
package jobs

import (
	"context"
	"errors"
	"log/slog"
)

// DefaultSchedule is used by tasks that do not name their own.
const DefaultSchedule = "@every 1m"

// ErrUnknownTask is returned by RunNow for a name that was never added.
var ErrUnknownTask = errors.New("unknown task")

// Handler is the function that performs one run of a task.
type Handler func(ctx context.Context) error

// Task is a named periodic unit of work.
type Task struct {
	Name     string
	Schedule string
	Run      Handler
}

// Sweeper drops expired entries and reports how many were removed.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// SweepTask builds a task that sweeps s and logs the number of removed
// entries when there were any.
func SweepTask(name, schedule string, s Sweeper, logger *slog.Logger) Task {
	if logger == nil {
		logger = slog.Default()
	}
	return Task{
		Name:     name,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			if n := s.Sweep(ctx); n > 0 {
				logger.Info("swept expired entries", slog.String("task", name), slog.Int("removed", n))
			}
			return nil
		},
	}
}
