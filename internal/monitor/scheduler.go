package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultInterval = 180 * time.Second

// SchedulerStatus is a point-in-time snapshot of the scheduler state.
type SchedulerStatus struct {
	Enabled   bool          `json:"enabled"`
	LastRun   time.Time     `json:"last_run"`
	LastItems int           `json:"last_items"`
	Interval  time.Duration `json:"-"`
}

// Scheduler drives poll cycles on a timer. Cycles never overlap: a manual
// trigger and the timer loop share the same run lock.
type Scheduler struct {
	cycle    *Cycle
	settings SettingsSource
	interval time.Duration
	logger   *slog.Logger

	runMu sync.Mutex // serializes cycle execution

	mu        sync.Mutex // guards the fields below
	enabled   bool
	lastRun   time.Time
	lastItems int
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewScheduler(cycle *Cycle, src SettingsSource, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cycle:    cycle,
		settings: src,
		interval: interval,
		logger:   logger,
	}
}

// Enable starts the timer loop. The first cycle runs immediately. Calling
// Enable on a running scheduler is a no-op.
func (s *Scheduler) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.enabled = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.logger.Info("monitor scheduler enabled")
}

// Disable stops the timer loop. A cycle already in flight finishes
// normally; only the wait for the next tick is interrupted.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = false
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("monitor scheduler disabled")
}

// RunNow triggers a single cycle outside the timer, waiting for any cycle
// already in flight to finish first.
func (s *Scheduler) RunNow(ctx context.Context) ([]DeliveryResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	results, err := s.cycle.RunOnce(ctx)
	if err != nil {
		return nil, err
	}
	s.recordRun(len(results))
	return results, nil
}

// Status reports the effective interval, which may come from settings
// rather than the constructor default.
func (s *Scheduler) Status() SchedulerStatus {
	interval := s.currentInterval(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStatus{
		Enabled:   s.enabled,
		LastRun:   s.lastRun,
		LastItems: s.lastItems,
		Interval:  interval,
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.runScheduled(ctx)
	for {
		timer := time.NewTimer(s.currentInterval(ctx))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runScheduled(ctx)
		}
	}
}

// runScheduled executes one timer-driven cycle. The cycle itself runs on a
// detached context so that Disable does not cut off in-flight work.
func (s *Scheduler) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()

	results, err := s.cycle.RunOnce(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Warn("scheduled poll cycle failed", "error", err)
		return
	}
	s.recordRun(len(results))
}

// currentInterval re-reads the configured interval so that settings updates
// take effect on the next tick without a restart.
func (s *Scheduler) currentInterval(ctx context.Context) time.Duration {
	if s.settings != nil {
		if cfg, err := s.settings.Get(ctx); err == nil && cfg != nil && cfg.IntervalSecs > 0 {
			return time.Duration(cfg.IntervalSecs) * time.Second
		}
	}
	return s.interval
}

func (s *Scheduler) recordRun(items int) {
	s.mu.Lock()
	s.lastRun = time.Now().UTC()
	s.lastItems = items
	s.mu.Unlock()
}
