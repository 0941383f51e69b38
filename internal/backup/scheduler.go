package backup

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Scheduler triggers a full backup and a retention sweep on a fixed
// interval. A failed run is reported through the logger and the optional
// OnError callback, and never stops subsequent ticks.
type Scheduler struct {
	service  *Service
	interval time.Duration
	logger   Logger

	// OnError, when set, receives every error from a scheduled run. Alerting
	// is the caller's concern; the scheduler only reports.
	OnError func(error)

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler creates a Scheduler. interval must be positive; a
// non-positive value is replaced with 24 hours so Start never has to fail.
func NewScheduler(service *Service, interval time.Duration, logger Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the timer goroutine. It never panics and never returns an
// error: failures inside scheduled runs are reported via the logger and
// OnError. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info("backup scheduler started", "interval", s.interval.String())
}

// Stop cancels the timer and waits for any in-flight run to finish. The
// atomic-rename write path guarantees an interrupted run leaves no partial
// artifact behind.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.started = false
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("backup scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single scheduled cycle: create a full backup, then
// sweep expired ones. Exported so "run now" surfaces and tests can drive a
// cycle without waiting for a tick.
func (s *Scheduler) RunOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.report(fmt.Errorf("scheduled run panicked: %v", r))
		}
	}()

	if _, err := s.service.CreateBackup(ctx, "scheduled"); err != nil {
		s.report(fmt.Errorf("scheduled backup: %w", err))
	}
	if _, err := s.service.Cleanup(ctx); err != nil {
		s.report(fmt.Errorf("scheduled cleanup: %w", err))
	}
}

func (s *Scheduler) report(err error) {
	s.logger.Error("scheduled run failed", "error", err)
	if s.OnError != nil {
		s.OnError(err)
	}
}
