package hook

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry holds the ordered hook lists for one engine, keyed by kind.
// Global-scope kinds (beforeAll/afterAll) live only here; journey-scope
// kinds (before/after) may additionally be registered per journey via
// the journey builder, in which case the runner concatenates this
// registry's list with the journey's own.
//
// Safe for concurrent use, though registration normally happens before
// the run starts.
type Registry struct {
	mu    sync.RWMutex
	lists map[Kind]List
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{lists: make(map[Kind]List)}
}

// Add appends a callback to the ordered list for the given kind.
func (r *Registry) Add(kind Kind, cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[kind] = append(r.lists[kind], cb)
}

// Hooks returns a copy of the ordered list for the given kind.
func (r *Registry) Hooks(kind Kind) List {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(List(nil), r.lists[kind]...)
}

// RunBatch invokes every callback of the given kind with the same
// payload as one concurrent batch. See RunList.
func (r *Registry) RunBatch(ctx context.Context, kind Kind, p Payload) error {
	return RunList(ctx, r.Hooks(kind), p)
}

// RunList fires every callback in the list concurrently with the same
// payload, waits for all of them to finish, and returns the first
// error encountered in invocation order. The batch is fail-together,
// not fail-fast: a failing callback never prevents its siblings from
// running to completion, and the context passed to the callbacks is
// not cancelled by a sibling's failure.
func RunList(ctx context.Context, list List, p Payload) error {
	if len(list) == 0 {
		return nil
	}

	errs := make([]error, len(list))

	// A bare errgroup (no WithContext) so one failure does not cancel
	// the rest of the batch.
	var g errgroup.Group
	for i, cb := range list {
		g.Go(func() error {
			errs[i] = cb(ctx, p)
			return nil
		})
	}
	_ = g.Wait() // goroutines report via errs

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
