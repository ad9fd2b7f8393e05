package binding

import (
	"context"
	"sync"

	"github.com/ekisa-team/bindery/internal/hostconfig"
	"github.com/ekisa-team/bindery/internal/paths"
)

// Factory constructs a binding instance for a host.
type Factory func(ctx context.Context, env FactoryEnv) (Binding, error)

// FactoryEnv carries everything a factory needs to construct a binding.
type FactoryEnv struct {
	Config        *hostconfig.Config
	Paths         paths.Paths
	InstallOption InstallOption
	Notifier      Notifier
}

// Registry maps binding identifiers to their factories. It is the
// in-process plugin boundary: concrete backends register themselves here
// and are resolved by name through the bindings zoo manifests.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new binding registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return ErrAlreadyRegistered
	}

	r.factories[name] = factory
	return nil
}

// Get retrieves a factory by name.
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	return factory, ok
}

// Names returns the registered binding identifiers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	return names
}
