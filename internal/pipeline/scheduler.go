package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// ErrPassRunning is returned by Trigger while another pass is in progress.
var ErrPassRunning = errors.New("a processing pass is already running")

// ErrSchedulerStopped is returned by Trigger when the scheduler is not running.
var ErrSchedulerStopped = errors.New("scheduler is not running")

// PassRunner runs one processing pass.
type PassRunner interface {
	Run(ctx context.Context) error
}

// PassFunc adapts a function to PassRunner.
type PassFunc func(ctx context.Context) error

func (f PassFunc) Run(ctx context.Context) error { return f(ctx) }

// Scheduler runs passes on a cron schedule, once at startup, and on demand.
// Passes never overlap: a tick or trigger that finds a pass running is
// skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner PassRunner
	logger *slog.Logger

	running sync.Mutex
	wg      sync.WaitGroup

	mu  sync.Mutex
	ctx context.Context
}

// NewScheduler parses spec (standard five-field cron or a descriptor such as
// "@every 15m") and prepares a scheduler for runner.
func NewScheduler(spec string, runner PassRunner, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, s.scheduled); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run performs the startup pass, then runs scheduled passes until ctx is
// cancelled. It waits for an in-flight pass before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Info("scheduler started", "entries", len(s.cron.Entries()))
	s.runPass(ctx, "startup")
	s.cron.Start()

	<-ctx.Done()

	s.mu.Lock()
	s.ctx = nil
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// Trigger starts a pass in the background. It fails fast when a pass is
// already running or the scheduler is stopped.
func (s *Scheduler) Trigger() error {
	s.mu.Lock()
	ctx := s.ctx
	if ctx == nil {
		s.mu.Unlock()
		return ErrSchedulerStopped
	}
	if !s.running.TryLock() {
		s.mu.Unlock()
		return ErrPassRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		s.execute(ctx, "trigger")
	}()
	return nil
}

func (s *Scheduler) scheduled() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return
	}
	s.runPass(ctx, "schedule")
}

// runPass runs a pass in the calling goroutine unless one is in progress.
func (s *Scheduler) runPass(ctx context.Context, reason string) {
	if !s.running.TryLock() {
		s.logger.Info("processing pass skipped, previous pass still running", "reason", reason)
		return
	}
	defer s.running.Unlock()
	s.execute(ctx, reason)
}

func (s *Scheduler) execute(ctx context.Context, reason string) {
	if err := s.runner.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("processing pass failed, previous snapshot kept", "error", err, "reason", reason)
	}
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
