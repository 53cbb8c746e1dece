// Package extension provides the in-process check runner registry and the
// three built-in extensions (cpu, memory, load) that ship with the agent.
package extension

import (
	"sort"
	"sync"

	"github.com/sentryd/sentryd/internal/agent"
)

// Registry looks runners up by name. It satisfies agent.ExtensionRegistry.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]agent.ExtensionRunner
}

var _ agent.ExtensionRegistry = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]agent.ExtensionRunner)}
}

// Register adds a runner under name, replacing any runner already
// registered under that name.
func (r *Registry) Register(name string, runner agent.ExtensionRunner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[name] = runner
}

// Unregister removes a runner. It reports whether one was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runners[name]; !ok {
		return false
	}
	delete(r.runners, name)
	return true
}

// Lookup retrieves a runner by name.
func (r *Registry) Lookup(name string) (agent.ExtensionRunner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runner, ok := r.runners[name]
	return runner, ok
}

// List returns the sorted names of every registered runner.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins adds the cpu, memory, and load extensions. A deployment
// that wants a smaller surface can build its own Registry and skip this
// call, or Unregister individual names afterward.
func RegisterBuiltins(r *Registry) {
	r.Register("cpu", &CPUExtension{})
	r.Register("memory", &MemoryExtension{})
	r.Register("load", &LoadExtension{})
}
