package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/hydrostat/internal/dynamo"
)

// Method names an integration scheme.
type Method string

const (
	MethodEuler  Method = "euler"
	MethodRK4    Method = "rk4"
	MethodVerlet Method = "verlet"
)

var methods = map[Method]func() dynamo.Integrator{
	MethodEuler:  func() dynamo.Integrator { return NewEuler() },
	MethodRK4:    func() dynamo.Integrator { return NewRK4() },
	MethodVerlet: func() dynamo.Integrator { return NewVerlet() },
}

// New returns a fresh integrator for method.
func New(method Method) (dynamo.Integrator, error) {
	ctor, ok := methods[method]
	if !ok {
		return nil, &dynamo.ConfigurationError{Field: "integrator", Reason: fmt.Sprintf("unknown method %q", method)}
	}
	return ctor(), nil
}

// Methods lists the known method names in sorted order.
func Methods() []string {
	names := make([]string, 0, len(methods))
	for m := range methods {
		names = append(names, string(m))
	}
	sort.Strings(names)
	return names
}

// Step advances x by one step of the named method.
func Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64, method Method) (dynamo.State, error) {
	integ, err := New(method)
	if err != nil {
		return nil, err
	}
	return integ.Step(dyn, x, u, t, dt)
}

func dimensionError(got, want int) error {
	return fmt.Errorf("%w: derivative length %d, state length %d", dynamo.ErrDimensionMismatch, got, want)
}
