package journey

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/paulb-elastic/synthetics"
)

// Registry owns the registered journeys in registration order. It is
// safe for concurrent use, though registration normally happens before
// the run starts and the runner clears the registry when a run ends.
type Registry struct {
	mu       sync.RWMutex
	journeys []*Journey
}

// NewRegistry creates an empty journey registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a journey. Registration order is execution order.
func (r *Registry) Register(j *Journey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.journeys = append(r.journeys, j)
}

// Journeys returns the registered journeys in registration order.
// The slice is a copy; the journeys are shared.
func (r *Registry) Journeys() []*Journey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Journey(nil), r.journeys...)
}

// Len returns the number of registered journeys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.journeys)
}

// Get returns the first journey with the given name.
func (r *Registry) Get(name string) (*Journey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.journeys {
		if j.Name == name {
			return j, true
		}
	}
	return nil, false
}

// Reset clears the journey list so the next registration cycle starts
// clean. Embedders that reload their journey set between runs call
// this; the runner itself only clears built state.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.journeys = nil
}

// ResetBuilt clears every journey's per-run state (steps and
// journey-scoped hooks) without dropping registrations. The runner
// calls it at the end of each run, which keeps scheduled repeat runs
// working against the same registry.
func (r *Registry) ResetBuilt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.journeys {
		j.reset()
	}
}

// Filter is the match/tag predicate applied to journeys before
// execution. Compile one from RunOptions with NewFilter.
type Filter struct {
	match *regexp.Regexp
	tags  []string
}

// NewFilter compiles the match expression and captures the tag query
// from the run options.
func NewFilter(opts synthetics.RunOptions) (*Filter, error) {
	f := &Filter{tags: opts.Tags}
	if opts.Match != "" {
		re, err := regexp.Compile(opts.Match)
		if err != nil {
			return nil, fmt.Errorf("%w: compile %q: %v", synthetics.ErrInvalidMatch, opts.Match, err)
		}
		f.match = re
	}
	return f, nil
}

// Matches reports whether the journey passes both the name match and
// the tag filter. An empty filter passes everything.
func (f *Filter) Matches(j *Journey) bool {
	if f.match != nil && !f.match.MatchString(j.Name) {
		return false
	}
	if len(f.tags) == 0 {
		return true
	}
	for _, q := range f.tags {
		if j.Monitor.HasTag(q) {
			return true
		}
	}
	return false
}
