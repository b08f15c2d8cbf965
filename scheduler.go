package sessionx

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs a task on a fixed interval until stopped. It may be started
// and stopped any number of times; Close stops it for good and waits for the
// running loop to exit.
type Scheduler struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	clock    Clock
	interval time.Duration
	task     func()
	log      *zap.Logger
	cancel   context.CancelFunc
	closed   bool

	// ticked receives after every task run when non-nil.
	ticked chan struct{}
}

// NewScheduler builds a stopped scheduler.
func NewScheduler(clock Clock, interval time.Duration, task func(), log *zap.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{clock: clock, interval: interval, task: task, log: log}
}

// Start launches the loop. It reports false when the scheduler is already
// running or has been closed.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	ticker := s.clock.NewTicker(s.interval)
	s.wg.Add(1)
	go s.run(ctx, ticker)
	s.log.Debug("refresh scheduler started", zap.Duration("interval", s.interval))
	return true
}

// Stop cancels the loop without waiting for it. It is safe to call from the
// task itself.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Close stops the scheduler permanently and waits for every loop it started
// to return. It must not be called from the task.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopLocked()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.log.Debug("refresh scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, ticker Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			s.task()
			if s.ticked != nil {
				s.ticked <- struct{}{}
			}
		}
	}
}
