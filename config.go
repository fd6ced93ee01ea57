package synthetics

// Params are user-supplied key/value parameters threaded through a run.
// They are passed to journey builders and to every lifecycle hook.
type Params map[string]any

// ScreenshotMode controls when step screenshots are captured.
type ScreenshotMode string

const (
	// ScreenshotsOn captures a screenshot at the end of every step.
	ScreenshotsOn ScreenshotMode = "on"
	// ScreenshotsOff disables screenshot capture.
	ScreenshotsOff ScreenshotMode = "off"
	// ScreenshotsOnFailure captures screenshots only for failed steps.
	ScreenshotsOnFailure ScreenshotMode = "only-on-failure"
)

// RunOptions is an immutable snapshot of the settings for one run.
// Build one with DefaultRunOptions and adjust fields before passing
// it to the runner; the runner never mutates it.
type RunOptions struct {
	// Environment names the target environment ("production", etc.).
	Environment string

	// Params are forwarded to journey builders and hooks.
	Params Params

	// Match restricts the run to journeys whose name matches this
	// regular expression. Empty means all journeys.
	Match string

	// Tags restricts the run to journeys carrying at least one of
	// these tags. A trailing "*" matches tag prefixes. Empty means
	// no tag filtering.
	Tags []string

	// DryRun registers journeys on the event stream without
	// executing any hook or step.
	DryRun bool

	// PauseOnError blocks after a failed step until an external
	// resume signal arrives. Debugging aid; not for automated runs.
	PauseOnError bool

	// Screenshots controls step screenshot capture.
	Screenshots ScreenshotMode

	// Metrics attaches a performance metrics snapshot to every
	// successful step result.
	Metrics bool

	// Reporter selects the reporter kind initialized for this run
	// ("json", "discard"). The "json" reporter is synchronous: the
	// runner blocks after each journey until the reporter
	// acknowledges delivery.
	Reporter string
}

// DefaultRunOptions returns a RunOptions with sensible defaults.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Environment: "development",
		Params:      Params{},
		Screenshots: ScreenshotsOn,
		Reporter:    "json",
	}
}
