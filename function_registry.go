package inventory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from Select predicates.
type Function func(args ...any) (any, error)

type registeredFunction struct {
	name string
	fn   Function
}

// FunctionRegistry holds predicate helpers. Lookups ignore case; predicates
// call a helper by the name it was registered under.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]registeredFunction
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]registeredFunction{}}
}

// Register adds fn under name. Names already taken, ignoring case, and names
// of predicate variables are rejected.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	switch {
	case name == "":
		return fmt.Errorf("inventory: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("inventory: function %q is nil", name)
	case isRuleIdentifier(name):
		return fmt.Errorf("inventory: function %q shadows a predicate variable", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]registeredFunction{}
	}
	folded := strings.ToLower(name)
	if existing, ok := r.functions[folded]; ok {
		return fmt.Errorf("inventory: function %q already registered as %q", name, existing.name)
	}
	r.functions[folded] = registeredFunction{name: name, fn: fn}
	return nil
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("inventory: no functions registered")
	}
	r.mu.RLock()
	entry, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("inventory: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns the registered names, as given to Register, sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for _, entry := range r.functions {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many functions are registered.
func (r *FunctionRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions)
}

// Clone copies the registry so later registrations stay local.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]registeredFunction, len(r.functions))}
	for folded, entry := range r.functions {
		clone.functions[folded] = entry
	}
	return clone
}

// bound returns a closure calling the named function.
func (r *FunctionRegistry) bound(name string) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		return r.Call(name, args...)
	}
}

// WithFunctionRegistry makes the functions of registry callable from Select
// predicates when the default engine is used.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

// WithCustomFunction registers fn under name for Select predicates. A
// rejected registration is reported by Open.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.optionErrs = append(cfg.optionErrs, err)
		}
	}
}
