package journey

import "github.com/paulb-elastic/synthetics/driver"

// Status is the outcome classification shared by step and journey
// results.
type Status string

const (
	// StatusSucceeded means the step or journey completed normally.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the step or journey raised an error.
	StatusFailed Status = "failed"
	// StatusSkipped means the step was never invoked because an
	// earlier step in the same journey failed. Journeys are never
	// skipped, only steps.
	StatusSkipped Status = "skipped"
)

// StepResult is the structured outcome of one step execution.
type StepResult struct {
	// Status is succeeded, failed, or skipped.
	Status Status

	// URL is the first navigation the step attempted, falling back
	// to the page location at step end.
	URL string

	// Metrics is the performance snapshot attached when the run
	// requested metrics and the step succeeded.
	Metrics driver.Metrics

	// Err is the error thrown by the step callback, if any. Step
	// errors are captured here and never propagate.
	Err error
}

// JourneyResult is the outcome of one journey execution.
type JourneyResult struct {
	// Status is succeeded or failed.
	Status Status

	// Err carries the first failing step's error, a hook or builder
	// failure, or the run's sticky beforeAll error on the degraded
	// path.
	Err error
}

// RunResult maps journey name to its result for one run. Duplicate
// journey names overwrite: the last journey executed wins.
type RunResult map[string]JourneyResult

// Failed reports whether any journey in the run failed.
func (r RunResult) Failed() bool {
	for _, jr := range r {
		if jr.Status == StatusFailed {
			return true
		}
	}
	return false
}
