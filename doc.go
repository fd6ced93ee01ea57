// Package synthetics provides a library-first execution engine for
// synthetic monitoring journeys. A journey is a named, ordered scenario
// of steps executed against a browser-automation driver; the engine
// turns registered journeys into ordered, observable runs with
// lifecycle hooks, per-step failure isolation, and a typed event
// stream consumed by reporters.
//
// # Quick Start
//
//	reg := journey.NewRegistry()
//	reg.Register(journey.New("checkout", func(b *journey.Builder) {
//	    b.Step("load cart", func(ctx context.Context, drv driver.Driver) error {
//	        return drv.Navigate(ctx, "https://example.com/cart")
//	    })
//	}))
//
//	r := runner.New(reg, runner.WithGatherer(gatherer))
//	result, err := r.Run(ctx, synthetics.DefaultRunOptions())
//
// # Architecture
//
// The runner drives one journey at a time and one step at a time.
// Every lifecycle transition is pushed onto an event bus for reporters;
// hook batches (beforeAll/afterAll/before/after) run concurrently
// within a batch but phases are strictly ordered relative to each
// other. A failing step marks the remainder of its journey skipped
// without aborting the run.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package synthetics
