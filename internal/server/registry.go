package server

import (
	"context"
	"sync"

	"github.com/mixzter/duel/internal/match"
)

// Registry holds the live engine of every match touched since startup.
// Matches not in memory are resumed from the repository on first access.
type Registry struct {
	opts    match.Options
	mu      sync.RWMutex
	engines map[string]*match.Engine
}

func NewRegistry(opts match.Options) *Registry {
	return &Registry{
		opts:    opts,
		engines: make(map[string]*match.Engine),
	}
}

// Get returns the live engine of a match, resuming it from the repository
// on a miss. The repository read runs without the lock; when two callers
// resume the same match, the first one registered wins.
func (r *Registry) Get(ctx context.Context, id string) (*match.Engine, error) {
	r.mu.RLock()
	e, ok := r.engines[id]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	loaded, err := match.Resume(ctx, id, r.opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock.
	if e, ok := r.engines[id]; ok {
		return e, nil
	}
	r.engines[id] = loaded
	return loaded, nil
}

// Start creates a new match and registers its engine.
func (r *Registry) Start(ctx context.Context, setup match.Setup) (*match.Engine, error) {
	e, err := match.Start(ctx, setup, r.opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.engines[e.ID()] = e
	r.mu.Unlock()
	return e, nil
}

// Remove forgets the engine of a match.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.engines, id)
	r.mu.Unlock()
}

// Len returns the number of live engines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}
