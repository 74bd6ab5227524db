package integrators

import "github.com/san-kum/hydrostat/internal/dynamo"

// Euler is the explicit first-order method x' = x + dt·f(x, u, t).
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) (dynamo.State, error) {
	dx, err := dyn.Derive(x, u, t)
	if err != nil {
		return nil, err
	}
	if len(dx) != len(x) {
		return nil, dimensionError(len(dx), len(x))
	}
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result, nil
}
