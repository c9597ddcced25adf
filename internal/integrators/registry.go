package integrators

import (
	"fmt"
	"sort"

	"github.com/hybridsim/hybridsim/internal/hybrid"
)

var registry = map[string]func() hybrid.Integrator{
	"euler": func() hybrid.Integrator { return NewEuler() },
	"rk4":   func() hybrid.Integrator { return NewRK4() },
	"rk45":  func() hybrid.Integrator { return NewRK45() },
}

// New constructs an integrator by name.
func New(name string) (hybrid.Integrator, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator %q (have %v)", name, List())
	}
	return ctor(), nil
}

// List returns the registered integrator names, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
