package metric

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps assignment identifiers to their capability sets.
type Registry struct {
	mu          sync.RWMutex
	assignments map[string]Assignment
}

// NewRegistry creates a registry pre-populated with the given assignments.
func NewRegistry(assignments ...Assignment) (*Registry, error) {
	r := &Registry{assignments: make(map[string]Assignment)}
	for _, a := range assignments {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an assignment. Names must be unique and the adapter,
// ground-truth loader and default leaderboards must be present.
func (r *Registry) Register(a Assignment) error {
	switch {
	case a.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidAssignment)
	case a.Adapter == nil:
		return fmt.Errorf("%w: %s has no adapter", ErrInvalidAssignment, a.Name)
	case a.LoadGroundTruth == nil:
		return fmt.Errorf("%w: %s has no ground truth loader", ErrInvalidAssignment, a.Name)
	case len(a.Leaderboards) == 0:
		return fmt.Errorf("%w: %s has no default leaderboards", ErrInvalidAssignment, a.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assignments[a.Name]; exists {
		return fmt.Errorf("%w: %s already registered", ErrInvalidAssignment, a.Name)
	}
	r.assignments[a.Name] = a
	return nil
}

// Lookup returns the assignment registered under name.
func (r *Registry) Lookup(name string) (Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assignments[name]
	if !ok {
		return Assignment{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownAssignment, name, r.namesLocked())
	}
	return a, nil
}

// Names lists registered identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.assignments))
	for n := range r.assignments {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
