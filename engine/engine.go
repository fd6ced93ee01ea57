package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/driver"
	"github.com/paulb-elastic/synthetics/event"
	"github.com/paulb-elastic/synthetics/hook"
	"github.com/paulb-elastic/synthetics/journey"
	mw "github.com/paulb-elastic/synthetics/middleware"
	"github.com/paulb-elastic/synthetics/reporter"
	"github.com/paulb-elastic/synthetics/runner"
	"github.com/paulb-elastic/synthetics/scheduler"
	"github.com/paulb-elastic/synthetics/store"
	"github.com/paulb-elastic/synthetics/stream"
)

// Engine bundles a configured runner with the surrounding subsystems.
// Use Build() to create one.
type Engine struct {
	registry *journey.Registry
	runner   *runner.Runner
	bus      *event.Bus
	stream   *stream.Server
	sched    *scheduler.Scheduler
	store    store.Store
	gatherer driver.Gatherer
	logger   *slog.Logger

	mws          []mw.Middleware
	reporterOpts reporter.Options
	stepTimeout  time.Duration
	schedOpts    []scheduler.Option

	// scheduledOpts is the RunOptions template for scheduler-fired
	// runs; the scheduler narrows Match to the due journeys.
	scheduledOpts synthetics.RunOptions

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by every subsystem.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithGatherer sets the automation backend. Defaults to driver.Noop().
func WithGatherer(g driver.Gatherer) Option {
	return func(e *Engine) { e.gatherer = g }
}

// WithStore persists run history to the given store. The engine closes
// it on Stop.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithMiddleware appends step middleware after the default stack.
func WithMiddleware(m ...mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, m...) }
}

// WithReporterOptions sets the output and logger reporters are built
// with.
func WithReporterOptions(opts reporter.Options) Option {
	return func(e *Engine) { e.reporterOpts = opts }
}

// WithStepTimeout bounds each step execution. Zero means no limit.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Engine) { e.stepTimeout = d }
}

// WithSchedulerOptions forwards options to the scheduler.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(e *Engine) { e.schedOpts = append(e.schedOpts, opts...) }
}

// WithScheduledRunOptions sets the RunOptions template used for
// scheduler-fired runs. The Match field is overwritten per dispatch.
func WithScheduledRunOptions(opts synthetics.RunOptions) Option {
	return func(e *Engine) { e.scheduledOpts = opts }
}

// WithTracerProvider sets a custom OTel TracerProvider for the step
// tracing middleware. If not set, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the step
// metrics middleware. If not set, the global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// Build assembles an Engine: registry, bus, default middleware stack,
// runner, stream server, and scheduler.
func Build(opts ...Option) (*Engine, error) {
	eng := &Engine{
		registry:      journey.NewRegistry(),
		logger:        slog.Default(),
		gatherer:      driver.Noop(),
		scheduledOpts: synthetics.DefaultRunOptions(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	// Fail fast on a bad scheduled-run template rather than on the
	// first dispatch.
	if _, err := journey.NewFilter(eng.scheduledOpts); err != nil {
		return nil, fmt.Errorf("engine: scheduled run options: %w", err)
	}

	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracer := eng.tracerProvider.Tracer("github.com/paulb-elastic/synthetics")
		tracingMw = mw.TracingWithTracer(tracer)
	} else {
		tracingMw = mw.Tracing()
	}

	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter("github.com/paulb-elastic/synthetics")
		metricsMw = mw.MetricsWithMeter(meter)
	} else {
		metricsMw = mw.Metrics()
	}

	// Default stack: recover → tracing → metrics → logging → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Timeout(eng.stepTimeout, eng.logger),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	eng.bus = event.NewBus()

	runnerOpts := []runner.Option{
		runner.WithLogger(eng.logger),
		runner.WithBus(eng.bus),
		runner.WithGatherer(eng.gatherer),
		runner.WithMiddleware(allMws...),
		runner.WithReporterOptions(eng.reporterOpts),
	}
	if eng.store != nil {
		runnerOpts = append(runnerOpts, runner.WithStore(eng.store))
	}
	eng.runner = runner.New(eng.registry, runnerOpts...)

	eng.stream = stream.NewServer(eng.bus, stream.WithLogger(eng.logger))

	schedOpts := append([]scheduler.Option{scheduler.WithLogger(eng.logger)}, eng.schedOpts...)
	eng.sched = scheduler.New(eng.registry, eng.scheduledRun, schedOpts...)

	return eng, nil
}

// Register adds a journey to the engine's registry.
func (e *Engine) Register(j *journey.Journey) {
	e.registry.Register(j)
}

// Run executes a run with the given options. Delegates to the runner;
// the single-active-run guard applies across direct and scheduled
// runs.
func (e *Engine) Run(ctx context.Context, opts synthetics.RunOptions) (journey.RunResult, error) {
	return e.runner.Run(ctx, opts)
}

// Start validates monitor schedules and launches the scheduler.
// Engines used only for direct runs never need to call it.
func (e *Engine) Start(ctx context.Context) error {
	return e.sched.Start(ctx)
}

// Stop shuts down the scheduler, disconnects stream clients, closes
// the event bus, and closes the store when one was configured.
func (e *Engine) Stop(ctx context.Context) error {
	e.sched.Stop()
	if err := e.stream.Close(); err != nil && !errors.Is(err, synthetics.ErrStreamClosed) {
		e.logger.Warn("stream close failed", slog.String("error", err.Error()))
	}
	e.bus.Close()
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			return fmt.Errorf("engine: close store: %w", err)
		}
	}
	e.logger.Info("engine stopped")
	return nil
}

// scheduledRun is the scheduler's dispatch callback. It narrows the
// scheduled RunOptions template to exactly the due journeys.
func (e *Engine) scheduledRun(ctx context.Context, journeys []string) error {
	quoted := make([]string, len(journeys))
	for i, name := range journeys {
		quoted[i] = regexp.QuoteMeta(name)
	}
	opts := e.scheduledOpts
	opts.Match = "^(" + strings.Join(quoted, "|") + ")$"

	if _, err := e.runner.Run(ctx, opts); err != nil {
		// An already-active run is expected overlap, not a failure.
		if errors.Is(err, synthetics.ErrRunActive) {
			e.logger.Debug("scheduled run skipped, run already active")
			return nil
		}
		return err
	}
	return nil
}

// ── Accessors ─────────────────────────────────

// Registry returns the journey registry.
func (e *Engine) Registry() *journey.Registry { return e.registry }

// Hooks returns the global hook registry.
func (e *Engine) Hooks() *hook.Registry { return e.runner.Hooks() }

// Bus returns the lifecycle event bus.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Runner returns the underlying runner.
func (e *Engine) Runner() *runner.Runner { return e.runner }

// Store returns the configured run store, or nil.
func (e *Engine) Store() store.Store { return e.store }

// Scheduler returns the scheduler.
func (e *Engine) Scheduler() *scheduler.Scheduler { return e.sched }

// StreamHandler returns the WebSocket stream endpoint. Mount it on any
// HTTP mux to expose live run events.
func (e *Engine) StreamHandler() http.Handler { return e.stream }
