package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/episim/internal/dynamo"
)

// Factory builds a fresh integrator. Runs never share an instance.
type Factory func() dynamo.Integrator

var factories = map[string]Factory{
	"euler": func() dynamo.Integrator { return NewEuler() },
	"rk4":   func() dynamo.Integrator { return NewRK4() },
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s (available: %v)", name, Names())
	}
	return fn, nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
