package expression

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
)

// Factory creates the function behind one call site
type Factory func(env Env, params Params) (Function, error)

// Registry maps function names to their factories. It is filled once before parsing starts and
// only read afterwards.
type Registry struct {
	factories map[string]Factory
}

// UnknownFunctionError is returned for calls to names nobody registered
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %s", e.Name)
}

func (e *UnknownFunctionError) Unwrap() error {
	return ErrUnknownFunction
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds factory under name. Names can only be registered once.
func (r *Registry) Register(name string, factory Factory) error {
	if factory == nil {
		return eris.Errorf("nil factory for function %s", name)
	}
	if _, ok := r.factories[name]; ok {
		return eris.Errorf("function %s is already registered", name)
	}

	r.factories[name] = factory
	return nil
}

// Lookup returns the factory registered under name
func (r *Registry) Lookup(name string) (Factory, bool) {
	factory, ok := r.factories[name]
	return factory, ok
}

// Names lists all registered functions in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call instantiates the function name for a call site at pos
func (r *Registry) Call(env Env, name string, params Params, pos string) (*Call, error) {
	factory, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownFunctionError{Name: name}
	}

	fn, err := factory(env, params)
	if err != nil {
		return nil, err
	}

	return &Call{
		Name:   name,
		Params: params,
		Pos:    pos,
		Fn:     fn,
	}, nil
}
