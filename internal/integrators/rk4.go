package integrators

import "github.com/san-kum/hydrostat/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta method. The control is held
// constant across the stages. Stage buffers are reused between steps, so an
// RK4 value must not be shared between goroutines.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) stage(dst dynamo.State, dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64) error {
	k, err := dyn.Derive(x, u, t)
	if err != nil {
		return err
	}
	if len(k) != len(dst) {
		return dimensionError(len(k), len(dst))
	}
	copy(dst, k)
	return nil
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (dynamo.State, error) {
	n := len(x)
	r.ensureScratch(n)

	if err := r.stage(r.k1, dyn, x, u, t); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	if err := r.stage(r.k2, dyn, r.scratch, u, t+dt*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	if err := r.stage(r.k3, dyn, r.scratch, u, t+dt*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	if err := r.stage(r.k4, dyn, r.scratch, u, t+dt); err != nil {
		return nil, err
	}

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return result, nil
}
