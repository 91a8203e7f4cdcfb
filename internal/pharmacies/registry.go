package pharmacies

import (
	"sync"
)

// Registry holds the configured pharmacy sources in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	sources map[string]Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
	}
}

// Register adds a source. Registering an id twice replaces the source but
// keeps its original position.
func (r *Registry) Register(source Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[source.ID()]; !exists {
		r.order = append(r.order, source.ID())
	}
	r.sources[source.ID()] = source
}

// Enabled returns the enabled sources in registration order.
func (r *Registry) Enabled() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		if s := r.sources[id]; s.IsEnabled() {
			sources = append(sources, s)
		}
	}
	return sources
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// IDs returns the ids of the given sources in order.
func IDs(sources []Source) []string {
	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID())
	}
	return ids
}
