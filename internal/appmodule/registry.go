package appmodule

import (
	"fmt"
	"sync"
)

// Registry holds every Module the process has loaded, keyed by name,
// matching the original core's table of loaded plugin .so handles.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds a module, failing if the name is already taken.
func (r *Registry) Register(m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := m.Name()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("appmodule: %q already registered", name)
	}
	r.modules[name] = m
	return nil
}

// Lookup returns the named module, if loaded.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names returns every registered module's name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.modules))
	for n := range r.modules {
		out = append(out, n)
	}
	return out
}
