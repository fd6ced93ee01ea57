package journey

import (
	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/driver"
	"github.com/paulb-elastic/synthetics/hook"
	"github.com/paulb-elastic/synthetics/id"
)

// Builder is the explicit build context threaded through a journey's
// builder callback. It replaces an ambient current-journey pointer:
// each run of each journey gets its own Builder, so concurrent engines
// and repeated runs cannot alias each other's step registration.
//
// A Builder is only valid during the builder callback that received
// it; holding onto one after the build phase is a programming error.
type Builder struct {
	journey *Journey
	drv     driver.Driver
	params  synthetics.Params
}

// Build clears the journey's per-run state and re-invokes its builder
// callback, populating the step list and journey-scoped hooks for this
// run. The driver handle and params are made available to the builder
// for use inside step closures.
func Build(j *Journey, drv driver.Driver, params synthetics.Params) {
	j.reset()
	if j.Builder == nil {
		return
	}
	j.Builder(&Builder{journey: j, drv: drv, params: params})
}

// Step appends a named step to the journey being built. Steps execute
// strictly in registration order.
func (b *Builder) Step(name string, fn StepFunc) {
	j := b.journey
	j.steps = append(j.steps, &Step{
		ID:       id.NewStepID(),
		Name:     name,
		Location: callerLocation(1),
		Index:    len(j.steps),
		Fn:       fn,
	})
}

// Before appends a journey-scoped hook run before this journey's first
// step.
func (b *Builder) Before(cb hook.Callback) {
	b.journey.before = append(b.journey.before, cb)
}

// After appends a journey-scoped hook run after this journey's last
// step.
func (b *Builder) After(cb hook.Callback) {
	b.journey.after = append(b.journey.after, cb)
}

// Driver returns the automation capability handle for this run of the
// journey. Step closures may capture it.
func (b *Builder) Driver() driver.Driver { return b.drv }

// Params returns the run's user parameters.
func (b *Builder) Params() synthetics.Params { return b.params }
