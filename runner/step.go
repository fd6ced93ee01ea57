package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/artifact"
	"github.com/paulb-elastic/synthetics/driver"
	"github.com/paulb-elastic/synthetics/event"
	"github.com/paulb-elastic/synthetics/id"
	"github.com/paulb-elastic/synthetics/journey"
	"github.com/paulb-elastic/synthetics/middleware"
	"github.com/paulb-elastic/synthetics/store"
)

// runSteps executes a journey's steps in order. Once a step fails,
// every remaining step is marked skipped without being invoked; every
// step, including skipped ones, emits exactly one step:start and one
// step:end. Returns the failing step's URL and error, if any.
func (r *Runner) runSteps(ctx context.Context, j *journey.Journey, drv driver.Driver, pm driver.PluginManager, opts synthetics.RunOptions, cache *artifact.RunCache, runID id.RunID) (string, error) {
	var (
		firstErr  error
		failedURL string
	)

	for _, s := range j.Steps() {
		r.bus.Emit(event.Event{
			Type:      event.TypeStepStart,
			Journey:   j.Name,
			JourneyID: j.ID,
			Step:      s.Name,
			StepID:    s.ID,
			Location:  s.Location,
		})

		started := time.Now().UTC()
		var res journey.StepResult
		if firstErr != nil {
			res.Status = journey.StatusSkipped
		} else {
			res = r.runStep(ctx, s, drv, pm, opts)
			if res.Err != nil {
				firstErr = res.Err
				failedURL = res.URL
			}
		}
		ended := time.Now().UTC()

		// Screenshots happen after the timing capture so capture
		// cost never pollutes step duration.
		if res.Status != journey.StatusSkipped {
			r.captureScreenshot(ctx, j, s, drv, opts, cache, res.Status)
		}

		r.bus.Emit(event.Event{
			Type:      event.TypeStepEnd,
			Journey:   j.Name,
			JourneyID: j.ID,
			Step:      s.Name,
			StepID:    s.ID,
			Location:  s.Location,
			Status:    res.Status,
			Error:     event.ErrorString(res.Err),
			URL:       res.URL,
			Metrics:   res.Metrics,
			Start:     started,
			End:       ended,
		})

		r.saveStep(ctx, &store.StepRecord{
			ID:        s.ID,
			RunID:     runID,
			JourneyID: j.ID,
			Name:      s.Name,
			Index:     s.Index,
			Status:    string(res.Status),
			URL:       res.URL,
			Error:     event.ErrorString(res.Err),
			Metrics:   res.Metrics,
			Duration:  ended.Sub(started),
			CreatedAt: started,
		})

		if res.Status == journey.StatusFailed && opts.PauseOnError {
			r.logger.Info("paused on step failure, waiting for resume",
				slog.String("journey", j.Name),
				slog.String("step", s.Name),
			)
			select {
			case <-r.resume:
			case <-ctx.Done():
				return failedURL, firstErr
			}
		}
	}

	return failedURL, firstErr
}

// runStep executes one step callback through the middleware chain.
// Step errors are captured on the result, never rethrown: a failing
// step fails its journey but the engine keeps sequencing. A panicking
// step is caught here even when no Recover middleware is wired.
func (r *Runner) runStep(ctx context.Context, s *journey.Step, drv driver.Driver, pm driver.PluginManager, opts synthetics.RunOptions) (res journey.StepResult) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := string(debug.Stack())
			r.logger.Error("step panicked",
				slog.String("step_name", s.Name),
				slog.String("step_id", s.ID.String()),
				slog.Any("panic", rec),
				slog.String("stack", stack),
			)
			res = journey.StepResult{
				Status: journey.StatusFailed,
				Err:    fmt.Errorf("panic in step %s: %v", s.Name, rec),
			}
		}
	}()

	pm.OnStep(s.Info())

	// One-shot observer: only the step's first navigation attempt is
	// recorded, including attempts that later fail.
	var (
		navOnce sync.Once
		navURL  string
	)
	remove := drv.OnNavigation(func(url string) {
		navOnce.Do(func() { navURL = url })
	})
	defer remove()

	handler := func(ctx context.Context) error {
		return s.Fn(ctx, drv)
	}
	var err error
	if len(r.middleware) > 0 {
		err = middleware.Chain(r.middleware...)(ctx, s, handler)
	} else {
		err = handler(ctx)
	}

	res = journey.StepResult{Status: journey.StatusSucceeded, URL: navURL, Err: err}
	if err != nil {
		res.Status = journey.StatusFailed
	}

	if res.URL == "" {
		if loc, locErr := drv.Location(ctx); locErr == nil {
			res.URL = loc
		}
	}

	if err == nil && opts.Metrics {
		res.Metrics = r.sampleMetrics(ctx, pm)
	}

	return res
}

// sampleMetrics asks the performance plugin for a snapshot. Missing
// plugin or sampling failure degrades to no metrics.
func (r *Runner) sampleMetrics(ctx context.Context, pm driver.PluginManager) driver.Metrics {
	sampler, ok := pm.Get(driver.KindPerformance).(driver.PerformanceSampler)
	if !ok {
		return nil
	}
	metrics, err := sampler.Sample(ctx)
	if err != nil {
		r.logger.Warn("performance sample failed", slog.String("error", err.Error()))
		return nil
	}
	return metrics
}

// captureScreenshot takes and caches a step screenshot according to
// the run's screenshot mode. Failures are logged, never fatal.
func (r *Runner) captureScreenshot(ctx context.Context, j *journey.Journey, s *journey.Step, drv driver.Driver, opts synthetics.RunOptions, cache *artifact.RunCache, status journey.Status) {
	switch opts.Screenshots {
	case synthetics.ScreenshotsOff:
		return
	case synthetics.ScreenshotsOnFailure:
		if status != journey.StatusFailed {
			return
		}
	}

	data, err := drv.Screenshot(ctx)
	if err != nil {
		r.logger.Warn("screenshot capture failed",
			slog.String("step", s.Name),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(data) == 0 {
		return
	}
	shot := artifact.NewScreenshot(j.Name, s.Name, s.ID, s.Index, data)
	if _, err := cache.SaveScreenshot(shot); err != nil {
		r.logger.Warn("screenshot cache write failed",
			slog.String("step", s.Name),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Runner) saveStep(ctx context.Context, rec *store.StepRecord) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveStep(ctx, rec); err != nil {
		r.logger.Error("failed to persist step",
			slog.String("step", rec.Name),
			slog.String("error", err.Error()),
		)
	}
}
