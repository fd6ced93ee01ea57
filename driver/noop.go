package driver

import (
	"context"
	"sync"

	"github.com/paulb-elastic/synthetics"
)

// Compile-time interface checks.
var (
	_ Gatherer      = (*noopGatherer)(nil)
	_ Driver        = (*noopDriver)(nil)
	_ PluginManager = (*noopPluginManager)(nil)
)

// Noop returns a Gatherer whose drivers perform no automation. Useful
// for development, dry wiring, and engine tests that exercise
// sequencing without a browser backend.
func Noop() Gatherer { return noopGatherer{} }

type noopGatherer struct{}

func (noopGatherer) SetupDriver(context.Context, synthetics.RunOptions) (Driver, error) {
	return &noopDriver{location: "about:blank"}, nil
}

func (noopGatherer) BeginRecording(context.Context, Driver, synthetics.RunOptions) (PluginManager, error) {
	return &noopPluginManager{}, nil
}

func (noopGatherer) Dispose(context.Context, Driver) error { return nil }

func (noopGatherer) Stop(context.Context) error { return nil }

// noopDriver tracks the last navigated URL so Location stays coherent
// with Navigate, but otherwise does nothing.
type noopDriver struct {
	mu        sync.Mutex
	location  string
	observers []func(string)
}

func (d *noopDriver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	d.location = url
	observers := append([]func(string){}, d.observers...)
	d.mu.Unlock()

	for _, fn := range observers {
		fn(url)
	}
	return nil
}

func (d *noopDriver) Location(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location, nil
}

func (d *noopDriver) Screenshot(context.Context) ([]byte, error) {
	return nil, nil
}

func (d *noopDriver) OnNavigation(fn func(string)) (remove func()) {
	d.mu.Lock()
	d.observers = append(d.observers, fn)
	idx := len(d.observers) - 1
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if idx < len(d.observers) {
			d.observers[idx] = func(string) {}
		}
	}
}

type noopPluginManager struct{}

func (noopPluginManager) OnStep(StepInfo) {}

func (noopPluginManager) Get(PluginKind) Plugin { return nil }

func (noopPluginManager) Output() map[string]any { return nil }
