// Package builtins contains the functions available to every match file.
package builtins

import (
	"github.com/ngld/match/pkg/expression"
)

var factories = map[string]expression.Factory{
	"get":        newGet,
	"set":        newSet,
	"find":       newFind,
	"glob":       newGlob,
	"java_junit": newJavaJUnit,
	"yaml":       newYaml,
	"calc":       newCalc,
}

// Register adds all builtin functions to registry
func Register(registry *expression.Registry) error {
	for name, factory := range factories {
		if err := registry.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry containing only the builtin functions
func NewRegistry() *expression.Registry {
	registry := expression.NewRegistry()
	if err := Register(registry); err != nil {
		// the registry is fresh so this can only be a duplicate in the table above
		panic(err)
	}
	return registry
}
