package diagnostic

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"overseer/internal/logging"
)

// Scheduler drives the engine on a fixed period. A manual TriggerNow and
// the next scheduled tick share one reentrancy guard, so cycles never
// overlap. Stop is idempotent and waits for the loop goroutine to exit.
type Scheduler struct {
	interval time.Duration
	run      func(context.Context)

	inFlight atomic.Bool

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler builds a scheduler that invokes run every interval.
func NewScheduler(interval time.Duration, run func(context.Context)) *Scheduler {
	return &Scheduler{
		interval: interval,
		run:      run,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop. Returns an error if the scheduler was
// already started.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true

	go s.loop()
	logging.Diagnostic("scheduler started (interval %s)", s.interval)
	return nil
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tryRun(context.Background())
		}
	}
}

// TriggerNow runs one cycle immediately. Returns false when a cycle is
// already in flight (the trigger is skipped, not queued).
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	return s.tryRun(ctx)
}

// tryRun is the reentrancy guard shared by ticks and manual triggers.
func (s *Scheduler) tryRun(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		logging.Diagnostic("cycle already in flight, trigger skipped")
		return false
	}
	defer s.inFlight.Store(false)
	s.run(ctx)
	return true
}

// Stop cancels the ticker and waits for the loop to exit. Safe to call
// repeatedly and safe to call on a never-started scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	close(s.stop)
	s.mu.Unlock()

	if started {
		<-s.done
	}
	logging.Diagnostic("scheduler stopped")
}
