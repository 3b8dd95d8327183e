package strategy

import (
	"sort"
	"sync"
)

// Registry holds every run submitted during the process lifetime.
// Runs stay listable after they finish until Purge removes them.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

// Add stores a run.
func (r *Registry) Add(run *Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
}

// Get returns the run with the given ID.
func (r *Registry) Get(id string) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return run, nil
}

// List returns snapshots of all runs, newest first.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	runs := make([]*Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(runs))
	for _, run := range runs {
		out = append(out, run.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Purge removes all terminal runs and returns how many were dropped.
// Active runs are never purged.
func (r *Registry) Purge() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	for id, run := range r.runs {
		if run.Status().Terminal() {
			delete(r.runs, id)
			purged++
		}
	}
	return purged
}
