package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// CleanupFunc releases a resource before the process exits.
type CleanupFunc func(ctx context.Context) error

type cleanupEntry struct {
	name     string
	fn       CleanupFunc
	priority int
}

// Registry runs cleanup functions once, lowest priority first.
//
// Priorities used by the CLI:
//   - 10: close the run history database
//   - 90: flush the logger
type Registry struct {
	mu      sync.Mutex
	entries []cleanupEntry
	done    bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds fn. Registrations after Run are ignored.
func (r *Registry) Register(name string, priority int, fn CleanupFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done || fn == nil {
		return
	}
	r.entries = append(r.entries, cleanupEntry{name: name, fn: fn, priority: priority})
}

// Run calls every registered function in priority order, registration order
// breaking ties, and returns their errors prefixed with the cleanup name.
// Only the first call runs anything.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return nil
	}
	r.done = true
	entries := r.sorted()
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errs
}

// Names returns the registered names in the order Run calls them.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.sorted()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// sorted must be called with mu held.
func (r *Registry) sorted() []cleanupEntry {
	out := make([]cleanupEntry, len(r.entries))
	copy(out, r.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].priority < out[j].priority
	})
	return out
}
