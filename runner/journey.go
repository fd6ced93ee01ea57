package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/artifact"
	"github.com/paulb-elastic/synthetics/driver"
	"github.com/paulb-elastic/synthetics/event"
	"github.com/paulb-elastic/synthetics/hook"
	"github.com/paulb-elastic/synthetics/id"
	"github.com/paulb-elastic/synthetics/journey"
	"github.com/paulb-elastic/synthetics/store"
)

// runJourney executes one journey on the full path: driver setup,
// build, before hooks, steps, after hooks, then the journey:end event
// carrying the merged result and plugin output. The driver is always
// disposed, whatever the outcome.
func (r *Runner) runJourney(ctx context.Context, j *journey.Journey, opts synthetics.RunOptions, cache *artifact.RunCache, runID id.RunID) journey.JourneyResult {
	started := time.Now().UTC()

	var (
		jErr      error
		artifacts map[string]any
		failedURL string
	)

	// The driver context is created before the journey is announced;
	// a setup failure still emits journey:start so every journey
	// reports a start/end pair.
	drv, err := r.gatherer.SetupDriver(ctx, opts)
	if err != nil {
		jErr = fmt.Errorf("runner: driver setup for journey %s: %w", j.Name, err)
	} else {
		defer func() {
			if dispErr := r.gatherer.Dispose(ctx, drv); dispErr != nil {
				r.logger.Error("driver dispose failed",
					slog.String("journey", j.Name),
					slog.String("error", dispErr.Error()),
				)
			}
		}()
	}

	r.bus.Emit(event.Event{
		Type:      event.TypeJourneyStart,
		Journey:   j.Name,
		JourneyID: j.ID,
		Params:    opts.Params,
	})

	if err == nil {
		var pm driver.PluginManager
		pm, err = r.gatherer.BeginRecording(ctx, drv, opts)
		if err != nil {
			jErr = fmt.Errorf("runner: begin recording for journey %s: %w", j.Name, err)
		} else {
			failedURL, jErr = r.executeJourney(ctx, j, drv, pm, opts, cache, runID)
			artifacts = pm.Output()
		}
	}

	status := journey.StatusSucceeded
	if jErr != nil {
		status = journey.StatusFailed
	}

	// Console output is bulky and only diagnostic: it rides on
	// journey:end solely for failed journeys.
	if status == journey.StatusSucceeded && artifacts != nil {
		delete(artifacts, string(driver.KindBrowserConsole))
	}

	completed := time.Now().UTC()
	r.emitJourneyEnd(ctx, event.Event{
		Type:      event.TypeJourneyEnd,
		Journey:   j.Name,
		JourneyID: j.ID,
		Status:    status,
		Error:     event.ErrorString(jErr),
		URL:       failedURL,
		Start:     started,
		End:       completed,
		Options:   &opts,
		Artifacts: artifacts,
	}, opts)

	r.saveJourney(ctx, &store.JourneyRecord{
		ID:          j.ID,
		RunID:       runID,
		Name:        j.Name,
		Status:      string(status),
		Error:       event.ErrorString(jErr),
		StartedAt:   started,
		CompletedAt: &completed,
	})

	return journey.JourneyResult{Status: status, Err: jErr}
}

// executeJourney runs the build phase, before hooks, steps, and after
// hooks for one journey, returning the URL of the failing step if any
// and the first error. A panic anywhere on this path, including inside
// the builder callback, is converted to a failed journey so one bad
// journey never takes down the run.
func (r *Runner) executeJourney(ctx context.Context, j *journey.Journey, drv driver.Driver, pm driver.PluginManager, opts synthetics.RunOptions, cache *artifact.RunCache, runID id.RunID) (failedURL string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := string(debug.Stack())
			r.logger.Error("journey panicked",
				slog.String("journey", j.Name),
				slog.Any("panic", rec),
				slog.String("stack", stack),
			)
			err = fmt.Errorf("panic in journey %s: %v", j.Name, rec)
		}
	}()

	journey.Build(j, drv, opts.Params)

	payload := hook.Payload{Env: opts.Environment, Params: opts.Params}

	// Journey-scope before hooks: the runner-wide list followed by
	// the hooks the builder registered for this journey.
	before := append(r.hooks.Hooks(hook.KindBefore), j.BeforeHooks()...)
	if err := hook.RunList(ctx, before, payload); err != nil {
		return "", fmt.Errorf("runner: before hooks for journey %s: %w", j.Name, err)
	}

	failedURL, stepErr := r.runSteps(ctx, j, drv, pm, opts, cache, runID)

	// After hooks run even when a step failed; cleanup must not be
	// skipped.
	after := append(r.hooks.Hooks(hook.KindAfter), j.AfterHooks()...)
	if err := hook.RunList(ctx, after, payload); err != nil {
		if stepErr == nil {
			return "", fmt.Errorf("runner: after hooks for journey %s: %w", j.Name, err)
		}
		r.logger.Error("after hooks failed",
			slog.String("journey", j.Name),
			slog.String("error", err.Error()),
		)
	}

	return failedURL, stepErr
}

// runDegraded is the journey path taken when beforeAll failed: the
// journey's lifecycle events are still emitted so reporters see every
// journey, but no driver is provisioned and no hook or step runs. The
// journey is marked failed with the sticky hook error.
func (r *Runner) runDegraded(ctx context.Context, j *journey.Journey, opts synthetics.RunOptions, runID id.RunID, hookErr error) journey.JourneyResult {
	started := time.Now().UTC()

	r.bus.Emit(event.Event{
		Type:      event.TypeJourneyStart,
		Journey:   j.Name,
		JourneyID: j.ID,
		Params:    opts.Params,
	})

	completed := time.Now().UTC()
	r.emitJourneyEnd(ctx, event.Event{
		Type:      event.TypeJourneyEnd,
		Journey:   j.Name,
		JourneyID: j.ID,
		Status:    journey.StatusFailed,
		Error:     event.ErrorString(hookErr),
		Start:     started,
		End:       completed,
		Options:   &opts,
	}, opts)

	r.saveJourney(ctx, &store.JourneyRecord{
		ID:          j.ID,
		RunID:       runID,
		Name:        j.Name,
		Status:      string(journey.StatusFailed),
		Error:       event.ErrorString(hookErr),
		StartedAt:   started,
		CompletedAt: &completed,
	})

	return journey.JourneyResult{Status: journey.StatusFailed, Err: hookErr}
}

// emitJourneyEnd pushes the journey:end event. With the json reporter
// the emit blocks until the reporter acknowledges delivery, so output
// ordering is preserved across journeys.
func (r *Runner) emitJourneyEnd(ctx context.Context, evt event.Event, opts synthetics.RunOptions) {
	if opts.Reporter == "json" {
		if err := r.bus.EmitAwait(ctx, evt); err != nil {
			r.logger.Error("journey end delivery not acknowledged",
				slog.String("journey", evt.Journey),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	r.bus.Emit(evt)
}

func (r *Runner) saveJourney(ctx context.Context, rec *store.JourneyRecord) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveJourney(ctx, rec); err != nil {
		r.logger.Error("failed to persist journey",
			slog.String("journey", rec.Name),
			slog.String("error", err.Error()),
		)
	}
}
