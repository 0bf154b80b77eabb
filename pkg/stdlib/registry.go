// Package stdlib provides the PureLisp prelude function registry.
package stdlib

import (
	"sort"

	"github.com/thomasrohde/purelisp/pkg/evaluator"
)

// Fn represents a prelude function.
type Fn struct {
	Name    string
	Execute evaluator.BuiltinFunc
}

// Registry holds registered prelude functions.
type Registry struct {
	fns map[string]*Fn
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*Fn),
	}
}

// Register adds a function to the registry, replacing any with the same name.
func (r *Registry) Register(fn Fn) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a function by name.
func (r *Registry) Get(name string) *Fn {
	return r.fns[name]
}

// All returns all registered functions.
func (r *Registry) All() map[string]*Fn {
	return r.fns
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Globals returns the registry as evaluator values, ready for
// evaluator.ExecOptions.Globals.
func (r *Registry) Globals() map[string]evaluator.Value {
	out := make(map[string]evaluator.Value, len(r.fns))
	for name, fn := range r.fns {
		out[name] = evaluator.NewBuiltin(name, fn.Execute)
	}
	return out
}
