// Package swarm provides the communication fabric between worker swarms:
// per-swarm gateways, the message router, the coordinator sink, and the
// registry mapping swarm names to their invokers.
package swarm

import (
	"sort"
	"sync"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
)

// Registry maps swarm names to invoker implementations. Names are resolved
// once at startup; dispatching by string comparison at call sites is
// exactly what this replaces.
type Registry struct {
	mu       sync.RWMutex
	invokers map[string]core.SwarmInvoker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{invokers: make(map[string]core.SwarmInvoker)}
}

// Register adds an invoker under its own name.
func (r *Registry) Register(invoker core.SwarmInvoker) error {
	if invoker == nil || invoker.Name() == "" {
		return core.ErrValidation(core.CodeSwarmNotRegistered, "invoker must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := invoker.Name()
	if _, exists := r.invokers[name]; exists {
		return core.ErrValidation(core.CodeSwarmNotRegistered, "swarm already registered: "+name)
	}
	r.invokers[name] = invoker
	return nil
}

// Get retrieves an invoker by name.
func (r *Registry) Get(name string) (core.SwarmInvoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoker, ok := r.invokers[name]
	if !ok {
		return nil, core.ErrValidation(core.CodeSwarmNotRegistered, "no swarm registered under "+name)
	}
	return invoker, nil
}

// List returns all registered swarm names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.invokers))
	for name := range r.invokers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
