// Package engine wires the synthetics subsystems together: the journey
// registry, hook registry, event bus, runner, optional run store,
// stream server, and scheduler. It sits above all subsystem packages
// and below the application layer; embedders that only need the core
// execution path can use the runner package directly.
package engine
