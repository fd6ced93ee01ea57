// Package journey defines the journey data model: named, ordered
// scenarios of steps, their per-journey hook lists, results, and the
// registry that owns them.
package journey

import (
	"github.com/paulb-elastic/synthetics/hook"
	"github.com/paulb-elastic/synthetics/id"
	"github.com/paulb-elastic/synthetics/monitor"
)

// BuilderFunc populates a journey's step list. It is re-invoked at the
// start of each run, so the steps of a journey are not fixed at
// registration time; a builder may branch on params or prior state.
type BuilderFunc func(b *Builder)

// Journey is a named, ordered scenario composed of steps, with its own
// hook lists and optional monitor configuration. A Journey is owned by
// the registry and mutated only during its own build phase.
type Journey struct {
	// ID is the unique journey identity, generated at construction.
	ID id.JourneyID

	// Name identifies the journey in results and events. Duplicate
	// names are allowed; the run result keeps the last one.
	Name string

	// Builder populates the step list for each run.
	Builder BuilderFunc

	// Monitor is the optional monitor configuration.
	Monitor monitor.Config

	// steps is the ordered step list for the current run, rebuilt by
	// the builder at the start of each run of this journey.
	steps []*Step

	// before and after are the journey-scoped hook lists, populated
	// during the build phase.
	before hook.List
	after  hook.List
}

// New creates a journey with a fresh ID.
func New(name string, builder BuilderFunc) *Journey {
	return &Journey{
		ID:      id.NewJourneyID(),
		Name:    name,
		Builder: builder,
	}
}

// WithMonitor attaches a monitor configuration and returns the journey
// for chaining at registration time.
func (j *Journey) WithMonitor(cfg monitor.Config) *Journey {
	j.Monitor = cfg
	return j
}

// Tags returns the journey's tag set from its monitor configuration.
func (j *Journey) Tags() []string { return j.Monitor.Tags }

// Steps returns the step list built for the current run.
func (j *Journey) Steps() []*Step { return j.steps }

// BeforeHooks returns the journey-scoped before hook list.
func (j *Journey) BeforeHooks() hook.List { return j.before }

// AfterHooks returns the journey-scoped after hook list.
func (j *Journey) AfterHooks() hook.List { return j.after }

// reset clears the per-run state (steps and journey-scoped hooks)
// ahead of a rebuild.
func (j *Journey) reset() {
	j.steps = nil
	j.before = nil
	j.after = nil
}
