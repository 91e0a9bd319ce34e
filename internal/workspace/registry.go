package workspace

import (
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateRun is returned when a draft ID is already owned by an active
// run.
type ErrDuplicateRun struct {
	DraftID string
}

func (e *ErrDuplicateRun) Error() string {
	return fmt.Sprintf("workspace already exists: draft %s has an active run", e.DraftID)
}

// Registry hands out exclusive ownership of draft IDs to lifecycle runs via
// compare-and-insert semantics.
type Registry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]struct{})}
}

// Acquire claims the draft ID for the calling run. The second concurrent
// claim for the same ID fails with ErrDuplicateRun.
func (r *Registry) Acquire(draftID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.active[draftID]; held {
		return &ErrDuplicateRun{DraftID: draftID}
	}
	r.active[draftID] = struct{}{}
	return nil
}

// Release returns ownership of the draft ID.
func (r *Registry) Release(draftID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, draftID)
}

// Active lists currently owned draft IDs, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
