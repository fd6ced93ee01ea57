package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/paulb-elastic/synthetics/journey"
)

// RunFunc triggers a run restricted to the named journeys. The
// scheduler invokes it with every journey that came due on a tick.
type RunFunc func(ctx context.Context, journeys []string) error

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickInterval sets how often due monitors are checked.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithRateLimit caps run dispatches at r per second with the given
// burst. Ticks that find due monitors while the limiter is exhausted
// leave them due; they fire on a later tick.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(s *Scheduler) { s.limiter = rate.NewLimiter(r, burst) }
}

// withNow overrides the clock. Tests only.
func withNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler drives repeated runs from monitor schedules. One instance
// serves one registry; it keeps the next fire time per journey in
// memory and recomputes it after each dispatch.
type Scheduler struct {
	registry *journey.Registry
	run      RunFunc
	logger   *slog.Logger
	limiter  *rate.Limiter
	now      func() time.Time

	tickInterval time.Duration

	mu      sync.Mutex
	nextRun map[string]time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Scheduler over the given registry. Runs are dispatched
// through run; the scheduler never executes journeys itself.
func New(registry *journey.Registry, run RunFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry:     registry,
		run:          run,
		logger:       slog.Default(),
		limiter:      rate.NewLimiter(rate.Inf, 1),
		now:          time.Now,
		tickInterval: time.Second,
		nextRun:      make(map[string]time.Time),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates every monitor schedule, primes the fire times, and
// launches the tick loop. It returns an error without starting when
// any registered journey carries an unparseable schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	now := s.now().UTC()

	s.mu.Lock()
	for _, j := range s.registry.Journeys() {
		if err := j.Monitor.Validate(); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("scheduler: %w", err)
		}
		if next := j.Monitor.Next(now); !next.IsZero() {
			s.nextRun[j.Name] = next
		}
	}
	scheduled := len(s.nextRun)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.tickLoop(ctx)

	s.logger.Info("scheduler started",
		slog.Int("monitors", scheduled),
		slog.Duration("tick_interval", s.tickInterval),
	)
	return nil
}

// Stop signals the tick loop to exit and waits for it.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick collects due journeys and dispatches one run for the batch.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().UTC()

	s.mu.Lock()
	var due []string
	for name, at := range s.nextRun {
		if at.After(now) {
			continue
		}
		due = append(due, name)
	}
	if len(due) == 0 {
		s.mu.Unlock()
		return
	}
	if !s.limiter.Allow() {
		// Leave the fire times in the past so the batch retries on
		// the next tick.
		s.mu.Unlock()
		s.logger.Debug("scheduler throttled", slog.Int("due", len(due)))
		return
	}
	for _, name := range due {
		j, ok := s.registry.Get(name)
		if !ok {
			delete(s.nextRun, name)
			continue
		}
		s.nextRun[name] = j.Monitor.Next(now)
	}
	s.mu.Unlock()

	s.logger.Info("scheduler firing", slog.Int("journeys", len(due)))
	if err := s.run(ctx, due); err != nil {
		s.logger.Error("scheduled run failed", slog.String("error", err.Error()))
	}
}

// NextFire reports the next fire time recorded for a journey, or the
// zero time when none is scheduled.
func (s *Scheduler) NextFire(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun[name]
}
