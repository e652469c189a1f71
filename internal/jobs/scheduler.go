package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu    sync.Mutex
	tasks map[string]Task

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cronLog := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger: logger,
		tasks:  make(map[string]Task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers t. An empty schedule falls back to DefaultSchedule.
func (s *Scheduler) Add(t Task) error {
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("add task: name and handler are required")
	}
	if t.Schedule == "" {
		t.Schedule = DefaultSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tasks[t.Name]; dup {
		return fmt.Errorf("add task %s: already registered", t.Name)
	}
	if _, err := s.cron.AddFunc(t.Schedule, func() { s.run(t) }); err != nil {
		return fmt.Errorf("add task %s: %w", t.Name, err)
	}
	s.tasks[t.Name] = t
	return nil
}

func (s *Scheduler) run(t Task) {
	start := time.Now()
	if err := t.Run(s.ctx); err != nil {
		s.logger.Error("task failed", slog.String("task", t.Name), slog.Any("err", err))
		return
	}
	s.logger.Debug("task done", slog.String("task", t.Name), slog.Duration("took", time.Since(start)))
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("tasks", len(s.Names())))
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow runs the named task synchronously, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return t.Run(ctx)
}

func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for n := range s.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
