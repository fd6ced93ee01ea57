// Package driver defines the contracts between the journey engine and
// the external browser-automation layer: the Gatherer that provisions
// capability handles, the Driver the steps execute against, and the
// PluginManager that collects side-channel instrumentation for one
// journey execution.
//
// The engine treats all three as opaque capabilities. A real
// implementation wraps a browser-automation backend; the Noop
// implementation in this package supports development and dry wiring.
package driver

import (
	"context"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/id"
)

// PluginKind identifies an instrumentation plugin attached to a
// journey execution.
type PluginKind string

const (
	// KindPerformance samples page performance metrics.
	KindPerformance PluginKind = "performance"
	// KindBrowserConsole captures console log messages.
	KindBrowserConsole PluginKind = "browserconsole"
	// KindNetwork records network request information.
	KindNetwork PluginKind = "network"
)

// Metrics is a snapshot of performance measurements keyed by metric
// name (e.g. "fcp", "lcp", "documents").
type Metrics map[string]float64

// Driver is the automation capability handle a journey executes
// against. Implementations wrap one browser context per journey.
type Driver interface {
	// Navigate loads the given URL.
	Navigate(ctx context.Context, url string) error

	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)

	// Screenshot captures the current viewport as an encoded image.
	Screenshot(ctx context.Context) ([]byte, error)

	// OnNavigation registers an observer invoked with every URL the
	// page attempts to navigate to, including navigations that later
	// fail. The returned function removes the observer.
	OnNavigation(fn func(url string)) (remove func())
}

// Plugin is one instrumentation plugin held by a PluginManager.
type Plugin interface {
	Kind() PluginKind
}

// PerformanceSampler is implemented by the performance plugin. The
// engine type-asserts the KindPerformance plugin to this interface
// when a run requests metrics.
type PerformanceSampler interface {
	Plugin

	// Sample returns the current performance metrics snapshot.
	Sample(ctx context.Context) (Metrics, error)
}

// StepInfo identifies the step a plugin observation belongs to.
// Defined here rather than in the journey package so that driver
// implementations do not depend on the engine's data model.
type StepInfo struct {
	ID    id.StepID
	Name  string
	Index int
}

// PluginManager collects side-channel instrumentation for one journey
// execution.
type PluginManager interface {
	// OnStep notifies all plugins that a new step has begun, so
	// per-step attribution (e.g. console messages) stays accurate.
	OnStep(step StepInfo)

	// Get returns the plugin of the given kind, or nil.
	Get(kind PluginKind) Plugin

	// Output returns the artifacts collected during the journey,
	// keyed by plugin kind. Collected once at journey end.
	Output() map[string]any
}

// Gatherer provisions and disposes automation capabilities for the
// engine. One Driver and one PluginManager serve one journey run.
type Gatherer interface {
	// SetupDriver creates a fresh Driver for a journey execution.
	SetupDriver(ctx context.Context, opts synthetics.RunOptions) (Driver, error)

	// BeginRecording attaches instrumentation plugins to the driver
	// and starts collection.
	BeginRecording(ctx context.Context, drv Driver, opts synthetics.RunOptions) (PluginManager, error)

	// Dispose releases a Driver and everything attached to it.
	Dispose(ctx context.Context, drv Driver) error

	// Stop shuts the gatherer down after the run completes.
	Stop(ctx context.Context) error
}
