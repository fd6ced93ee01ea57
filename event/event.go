// Package event defines the typed lifecycle event stream reporters
// consume, and the bus that carries it.
//
// Events are delivered to subscribers in emission order. Delivery is
// normally fire-and-forget; the journey-end event supports a
// flush-and-wait mode where the emitter blocks until a reporter
// acknowledges delivery — the only explicit synchronization barrier in
// the engine.
package event

import (
	"time"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/driver"
	"github.com/paulb-elastic/synthetics/id"
	"github.com/paulb-elastic/synthetics/journey"
)

// Type identifies the kind of lifecycle event.
type Type string

const (
	// TypeStart opens the run.
	TypeStart Type = "start"
	// TypeJourneyRegister announces a journey in dry-run mode.
	TypeJourneyRegister Type = "journey:register"
	// TypeJourneyStart announces a journey beginning execution.
	TypeJourneyStart Type = "journey:start"
	// TypeJourneyEnd carries a journey's merged result, timing, and
	// plugin output.
	TypeJourneyEnd Type = "journey:end"
	// TypeJourneyEndReported acknowledges that a synchronous reporter
	// has flushed the preceding journey:end.
	TypeJourneyEndReported Type = "journey:end:reported"
	// TypeStepStart announces a step beginning execution.
	TypeStepStart Type = "step:start"
	// TypeStepEnd carries a step's merged result and timing. Every
	// step emits exactly one, including skipped steps.
	TypeStepEnd Type = "step:end"
	// TypeEnd closes the run.
	TypeEnd Type = "end"
)

// Event is the envelope pushed onto the bus for every lifecycle
// transition. Fields beyond ID, Type, and Time are populated per type;
// unset fields marshal as absent.
type Event struct {
	ID   id.EventID `json:"id"`
	Type Type       `json:"type"`
	Time time.Time  `json:"ts"`

	// NumJourneys is set on start.
	NumJourneys int `json:"num_journeys,omitempty"`

	// Journey identity, set on journey:* and step:* events.
	Journey   string       `json:"journey,omitempty"`
	JourneyID id.JourneyID `json:"journey_id,omitempty"`

	// Step identity, set on step:* events.
	Step     string    `json:"step,omitempty"`
	StepID   id.StepID `json:"step_id,omitempty"`
	Location string    `json:"location,omitempty"`

	// Params is set on journey:start.
	Params synthetics.Params `json:"params,omitempty"`

	// Result fields, set on journey:end and step:end.
	Status  journey.Status `json:"status,omitempty"`
	Error   string         `json:"error,omitempty"`
	URL     string         `json:"url,omitempty"`
	Metrics driver.Metrics `json:"metrics,omitempty"`

	// Timing, set on journey:end and step:end.
	Start time.Time `json:"start,omitzero"`
	End   time.Time `json:"end,omitzero"`

	// Options echoes the run options on journey:end so renderers can
	// reproduce the run configuration.
	Options *synthetics.RunOptions `json:"options,omitempty"`

	// Artifacts is the plugin output merged into journey:end, keyed
	// by plugin kind.
	Artifacts map[string]any `json:"artifacts,omitempty"`
}

// ErrorString renders an error for event payloads; nil becomes "".
func ErrorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
