// Package hook provides ordered lifecycle hook lists and concurrent
// batch execution.
//
// Hooks come in four kinds across two scopes: beforeAll/afterAll run
// once per run (global scope), before/after run around each journey
// (journey scope). Within a batch all callbacks of one kind fire
// concurrently and the batch waits for every callback to finish;
// across batches the phases are strictly ordered.
package hook

import (
	"context"

	"github.com/paulb-elastic/synthetics"
)

// Kind identifies a lifecycle phase.
type Kind string

const (
	// KindBeforeAll runs once before any journey.
	KindBeforeAll Kind = "beforeAll"
	// KindAfterAll runs once after all journeys.
	KindAfterAll Kind = "afterAll"
	// KindBefore runs before each journey's first step.
	KindBefore Kind = "before"
	// KindAfter runs after each journey's last step.
	KindAfter Kind = "after"
)

// Scope identifies whether a hook kind applies to the whole run or to
// a single journey.
type Scope string

const (
	// ScopeGlobal hooks run once per run.
	ScopeGlobal Scope = "global"
	// ScopeJourney hooks run once per journey.
	ScopeJourney Scope = "journey"
)

// Scope returns the scope the kind belongs to.
func (k Kind) Scope() Scope {
	switch k {
	case KindBeforeAll, KindAfterAll:
		return ScopeGlobal
	default:
		return ScopeJourney
	}
}

// Payload is the argument passed to every hook callback in a batch.
type Payload struct {
	// Env is the target environment for the run.
	Env string

	// Params are the run's user parameters.
	Params synthetics.Params
}

// Callback is a lifecycle hook function.
type Callback func(ctx context.Context, p Payload) error

// List is an ordered hook list. Append-only during registration.
type List []Callback
