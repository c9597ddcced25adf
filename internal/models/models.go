// Package models ships the built-in hybrid systems: ready-made leaf
// systems exercising continuous dynamics, witness functions, and each
// kind of event action.
package models

import (
	"fmt"
	"sort"

	"github.com/hybridsim/hybridsim/internal/hybrid"
)

var registry = map[string]func() hybrid.System{
	"bouncer":    func() hybrid.System { return NewBouncer() },
	"logistic":   func() hybrid.System { return NewLogistic() },
	"thermostat": func() hybrid.System { return NewThermostat() },
}

// New constructs a built-in model by name.
func New(name string) (hybrid.System, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q (have %v)", name, List())
	}
	return ctor(), nil
}

// List returns the registered model names, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultState returns a sensible initial continuous state for a
// built-in model, used when a run configuration leaves it unset.
func DefaultState(name string) hybrid.Vector {
	switch name {
	case "bouncer":
		return hybrid.Vector{1.0, 0.0}
	case "logistic":
		return hybrid.Vector{-0.5}
	case "thermostat":
		return hybrid.Vector{20.0}
	default:
		return nil
	}
}
