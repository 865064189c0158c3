package pipe

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/rawpipe/token"
)

// Registry is a process-wide (or test-local) catalog of module classes,
// the Go analogue of dt_pipe_global_t's module array (§3.6, §9 "global
// module registry"). Unlike the source's single process-global catalog,
// Registry is an explicit handle so tests can build independent
// registries concurrently (§9's resolution of that design note).
//
// The registration pattern mirrors gg's recording/registry.go exactly:
// reference modules call Register from an init() under a stable name.
type Registry struct {
	mu      sync.RWMutex
	classes map[token.Token]*ModuleClass
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[token.Token]*ModuleClass)}
}

// Register adds class to the registry under class.Name. It panics if
// class is nil, class.Name is the zero token, or a class with the same
// name is already registered — module classes are meant to be
// registered exactly once from an init(), so a duplicate indicates a
// programming error rather than a recoverable runtime condition.
func (r *Registry) Register(class *ModuleClass) {
	if class == nil {
		panic("pipe: Register called with nil class")
	}
	if class.Name.IsZero() {
		panic("pipe: Register called with empty class name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.classes[class.Name]; dup {
		panic(fmt.Sprintf("pipe: Register called twice for class %q", class.Name))
	}
	r.classes[class.Name] = class
}

// Unregister removes a module class. Primarily useful in tests that
// need a clean registry between cases.
func (r *Registry) Unregister(name token.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.classes, name)
}

// Class looks up a module class by name, returning an error with a hint
// if it is not found (e.g. a forgotten blank import of the module
// package).
func (r *Registry) Class(name token.Token) (*ModuleClass, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	class, ok := r.classes[name]
	if !ok {
		return nil, fmt.Errorf("pipe: no module class %q registered (forgotten import?): %w", name, ErrMissingModuleClass)
	}
	return class, nil
}

// MustClass is Class but panics on error.
func (r *Registry) MustClass(name token.Token) *ModuleClass {
	class, err := r.Class(name)
	if err != nil {
		panic(err)
	}
	return class
}

// IsRegistered reports whether a class named name is registered.
func (r *Registry) IsRegistered(name token.Token) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[name]
	return ok
}

// Classes returns the names of all registered module classes, sorted
// for deterministic iteration.
func (r *Registry) Classes() []token.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]token.Token, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Count returns the number of registered classes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes)
}

// globalRegistry is the process-wide registry reference modules
// register themselves into by default, mirroring dt_pipe_global_t's
// single process-global catalog. Graph construction may instead be
// given an explicit *Registry (see NewGraph) to isolate tests.
var globalRegistry = NewRegistry()

// Global returns the process-wide module registry.
func Global() *Registry { return globalRegistry }

// RegisterModuleClass registers class into the global registry. This is
// the function reference module packages call from their init().
func RegisterModuleClass(class *ModuleClass) { globalRegistry.Register(class) }
