package journey

import (
	"context"
	"fmt"
	"runtime"

	"github.com/paulb-elastic/synthetics/driver"
	"github.com/paulb-elastic/synthetics/id"
)

// StepFunc is the unit-of-work callback executed against the
// automation driver.
type StepFunc func(ctx context.Context, drv driver.Driver) error

// Step is one unit of work inside a journey. A Step belongs to exactly
// one Journey; the step list is append-only during the build phase.
type Step struct {
	// ID is generated when the step is appended.
	ID id.StepID

	// Name identifies the step in results and events.
	Name string

	// Location is the "file:line" of the registration call site.
	Location string

	// Index is the zero-based position within the journey.
	Index int

	// Fn is the step callback.
	Fn StepFunc
}

// Info returns the step identity handed to instrumentation plugins.
func (s *Step) Info() driver.StepInfo {
	return driver.StepInfo{ID: s.ID, Name: s.Name, Index: s.Index}
}

// callerLocation resolves the registration call site, skipping the
// given number of frames above the caller.
func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", file, line)
}
