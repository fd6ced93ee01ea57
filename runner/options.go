package runner

import (
	"log/slog"

	"github.com/paulb-elastic/synthetics/driver"
	"github.com/paulb-elastic/synthetics/event"
	"github.com/paulb-elastic/synthetics/hook"
	"github.com/paulb-elastic/synthetics/middleware"
	"github.com/paulb-elastic/synthetics/reporter"
	"github.com/paulb-elastic/synthetics/store"
)

// Option configures a Runner.
type Option func(*Runner)

// WithGatherer sets the automation backend. Defaults to driver.Noop().
func WithGatherer(g driver.Gatherer) Option {
	return func(r *Runner) {
		r.gatherer = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithBus sets the event bus. Defaults to a fresh bus; pass a shared
// one to attach external subscribers such as the stream server.
func WithBus(bus *event.Bus) Option {
	return func(r *Runner) {
		r.bus = bus
	}
}

// WithHooks sets the global hook registry. Defaults to a fresh one.
func WithHooks(hooks *hook.Registry) Option {
	return func(r *Runner) {
		r.hooks = hooks
	}
}

// WithStore enables run-history persistence. Without it, nothing is
// persisted.
func WithStore(s store.Store) Option {
	return func(r *Runner) {
		r.store = s
	}
}

// WithMiddleware sets the middleware chain applied around every step.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(r *Runner) {
		r.middleware = mws
	}
}

// WithReporterOptions overrides the options handed to the reporter
// built for each run (output writer, logger).
func WithReporterOptions(opts reporter.Options) Option {
	return func(r *Runner) {
		r.reporterOpts = opts
	}
}
