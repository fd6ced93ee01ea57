// Package reporter turns the lifecycle event stream into run output.
//
// A reporter subscribes to the event bus and consumes events in order.
// Reporters are registered by kind; the runner looks the configured
// kind up at run start. The built-in kinds are "json" (NDJSON to a
// writer) and "discard" (drain only).
package reporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/event"
)

// Reporter consumes lifecycle events until closed.
type Reporter interface {
	// Kind returns the registered kind name.
	Kind() string

	// Close detaches the reporter from the bus and waits for it to
	// finish processing buffered events.
	Close() error
}

// Options configures a reporter instance.
type Options struct {
	// Output is where the reporter writes. Defaults to os.Stdout.
	Output io.Writer

	// Logger is used for reporter diagnostics. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Factory builds a started reporter subscribed to the given bus.
type Factory func(bus *event.Bus, opts Options) (Reporter, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a reporter kind available to New. Registering a kind
// twice overwrites the earlier factory.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = f
}

// New builds a started reporter of the given kind.
func New(kind string, bus *event.Bus, opts Options) (Reporter, error) {
	registryMu.RLock()
	f, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("reporter: %q: %w", kind, synthetics.ErrUnknownReporter)
	}
	return f(bus, opts.withDefaults())
}

// Kinds returns the registered reporter kinds.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}

func init() {
	Register("json", newJSON)
	Register("discard", newDiscard)
}
