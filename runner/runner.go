// Package runner orchestrates suite execution: the single-active-run
// guard, dry runs, match/tag filtering, the global hook phases, the
// per-journey execution paths, and the lifecycle event stream the
// reporters consume.
package runner

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/artifact"
	"github.com/paulb-elastic/synthetics/driver"
	"github.com/paulb-elastic/synthetics/event"
	"github.com/paulb-elastic/synthetics/hook"
	"github.com/paulb-elastic/synthetics/id"
	"github.com/paulb-elastic/synthetics/journey"
	"github.com/paulb-elastic/synthetics/middleware"
	"github.com/paulb-elastic/synthetics/reporter"
	"github.com/paulb-elastic/synthetics/store"
)

// Runner executes the registered journeys. Construct one explicitly
// with New; a process may hold several runners, each with its own
// registry, hooks, and bus.
type Runner struct {
	registry *journey.Registry
	hooks    *hook.Registry
	gatherer driver.Gatherer
	bus      *event.Bus
	logger   *slog.Logger
	store    store.Store

	middleware   []middleware.Middleware
	reporterOpts reporter.Options

	// active guards against overlapping runs on the same runner.
	active atomic.Bool

	// resume releases a step paused by PauseOnError.
	resume chan struct{}
}

// New creates a runner over the given journey registry.
func New(registry *journey.Registry, opts ...Option) *Runner {
	r := &Runner{
		registry: registry,
		hooks:    hook.NewRegistry(),
		gatherer: driver.Noop(),
		bus:      event.NewBus(),
		logger:   slog.Default(),
		resume:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the journey registry.
func (r *Runner) Registry() *journey.Registry { return r.registry }

// Hooks returns the global hook registry.
func (r *Runner) Hooks() *hook.Registry { return r.hooks }

// Bus returns the lifecycle event bus.
func (r *Runner) Bus() *event.Bus { return r.bus }

// Resume releases the step currently paused by PauseOnError. Calling
// it with no step paused arms the release for the next pause.
func (r *Runner) Resume() {
	select {
	case r.resume <- struct{}{}:
	default:
	}
}

// Run executes every registered journey that passes the run options'
// match and tag filters, in registration order, and returns the
// per-journey results keyed by journey name.
//
// Only one run may be active per runner; a concurrent call returns an
// empty result with ErrRunActive. A beforeAll hook failure does not
// abort the run: every journey still emits its lifecycle events and is
// marked failed with the hook error. An afterAll hook failure is
// returned alongside the results.
//
// The registry is cleared when the run ends, so the next registration
// cycle starts clean.
func (r *Runner) Run(ctx context.Context, opts synthetics.RunOptions) (journey.RunResult, error) {
	if !r.active.CompareAndSwap(false, true) {
		return journey.RunResult{}, synthetics.ErrRunActive
	}
	defer r.active.Store(false)

	if opts.Reporter == "" {
		opts.Reporter = "json"
	}

	filter, err := journey.NewFilter(opts)
	if err != nil {
		return journey.RunResult{}, err
	}

	rep, err := reporter.New(opts.Reporter, r.bus, r.reporterOpts)
	if err != nil {
		return journey.RunResult{}, err
	}
	defer func() {
		if closeErr := rep.Close(); closeErr != nil {
			r.logger.Error("reporter close failed", slog.String("error", closeErr.Error()))
		}
	}()

	cache, err := artifact.NewRunCache(artifact.GetCodec(artifact.CodecNameJSON))
	if err != nil {
		return journey.RunResult{}, err
	}
	defer func() {
		if rmErr := cache.Remove(); rmErr != nil {
			r.logger.Error("run cache remove failed", slog.String("error", rmErr.Error()))
		}
	}()

	// The match/tag filter applies on the execution path only: dry
	// run announces every registered journey, and the start event
	// reports the registered count.
	journeys := r.registry.Journeys()
	defer r.registry.ResetBuilt()

	run := &store.Run{
		ID:          id.NewRunID(),
		Environment: opts.Environment,
		Status:      store.RunStatusRunning,
		NumJourneys: len(journeys),
		StartedAt:   time.Now().UTC(),
	}
	r.createRun(ctx, run)

	r.bus.Emit(event.Event{Type: event.TypeStart, NumJourneys: len(journeys)})
	defer r.bus.Emit(event.Event{Type: event.TypeEnd})

	defer func() {
		if stopErr := r.gatherer.Stop(ctx); stopErr != nil {
			r.logger.Error("gatherer stop failed", slog.String("error", stopErr.Error()))
		}
	}()

	if opts.DryRun {
		for _, j := range journeys {
			r.bus.Emit(event.Event{
				Type:      event.TypeJourneyRegister,
				Journey:   j.Name,
				JourneyID: j.ID,
			})
		}
		r.finishRun(ctx, run, journey.RunResult{}, nil)
		return journey.RunResult{}, nil
	}

	payload := hook.Payload{Env: opts.Environment, Params: opts.Params}

	// A beforeAll failure is sticky: it does not stop the run, it
	// reroutes every journey onto the degraded path.
	hookErr := r.hooks.RunBatch(ctx, hook.KindBeforeAll, payload)
	if hookErr != nil {
		r.logger.Error("beforeAll hooks failed",
			slog.String("error", hookErr.Error()),
		)
	}

	results := make(journey.RunResult, len(journeys))
	for _, j := range journeys {
		if !filter.Matches(j) {
			continue
		}
		var res journey.JourneyResult
		if hookErr != nil {
			res = r.runDegraded(ctx, j, opts, run.ID, hookErr)
		} else {
			res = r.runJourney(ctx, j, opts, cache, run.ID)
		}
		results[j.Name] = res
	}

	afterErr := r.hooks.RunBatch(ctx, hook.KindAfterAll, payload)
	if afterErr != nil {
		r.logger.Error("afterAll hooks failed",
			slog.String("error", afterErr.Error()),
		)
	}

	r.finishRun(ctx, run, results, afterErr)
	return results, afterErr
}

// createRun persists the new run when a store is configured.
// Persistence failures are logged, never fatal to the run.
func (r *Runner) createRun(ctx context.Context, run *store.Run) {
	if r.store == nil {
		return
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		r.logger.Error("failed to persist run",
			slog.String("run_id", run.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// finishRun stamps the run's final status and persists it.
func (r *Runner) finishRun(ctx context.Context, run *store.Run, results journey.RunResult, afterErr error) {
	if r.store == nil {
		return
	}
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Status = store.RunStatusSucceeded
	if results.Failed() {
		run.Status = store.RunStatusFailed
	}
	if afterErr != nil {
		run.Status = store.RunStatusFailed
		run.Error = afterErr.Error()
	}
	if err := r.store.UpdateRun(ctx, run); err != nil {
		r.logger.Error("failed to update run",
			slog.String("run_id", run.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}
