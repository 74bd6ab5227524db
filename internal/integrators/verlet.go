package integrators

import "github.com/san-kum/hydrostat/internal/dynamo"

// Verlet is velocity Verlet for states laid out as [positions; velocities].
// The acceleration at the new positions is evaluated with the old
// velocities, which keeps velocity-dependent forces explicit.
type Verlet struct {
	scratch dynamo.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (dynamo.State, error) {
	n := len(x)
	if n%2 != 0 {
		return nil, &dynamo.ConfigurationError{Field: "state", Reason: "verlet needs an even state length"}
	}
	half := n / 2
	if len(v.scratch) != n {
		v.scratch = make(dynamo.State, n)
	}

	dx, err := dyn.Derive(x, u, t)
	if err != nil {
		return nil, err
	}
	if len(dx) != n {
		return nil, dimensionError(len(dx), n)
	}

	result := make(dynamo.State, n)
	dt2 := dt * dt
	for i := 0; i < half; i++ {
		result[i] = x[i] + x[half+i]*dt + 0.5*dx[half+i]*dt2
		v.scratch[i] = result[i]
		v.scratch[half+i] = x[half+i]
	}

	dxNew, err := dyn.Derive(v.scratch, u, t+dt)
	if err != nil {
		return nil, err
	}
	if len(dxNew) != n {
		return nil, dimensionError(len(dxNew), n)
	}

	halfDt := 0.5 * dt
	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + (dx[half+i]+dxNew[half+i])*halfDt
	}
	return result, nil
}
