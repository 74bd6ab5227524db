// Package solver computes the constraint reaction forces that keep an
// assembled constraint system satisfied under Baumgarte stabilization.
package solver

import (
	"fmt"

	"github.com/san-kum/hydrostat/internal/constraint"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/linalg"
)

const (
	DefaultDampingRate    = 50.0
	DefaultSpringRate     = 50.0
	DefaultRegularization = 1e-6
)

// Solver holds the stabilization gains. DampingRate scales the velocity
// error term, SpringRate the position error term, and Regularization is
// added to the diagonal of the system matrix.
type Solver struct {
	DampingRate    float64
	SpringRate     float64
	Regularization float64
}

func New() *Solver {
	return &Solver{
		DampingRate:    DefaultDampingRate,
		SpringRate:     DefaultSpringRate,
		Regularization: DefaultRegularization,
	}
}

func (s *Solver) Validate() error {
	if s.Regularization < 0 {
		return &dynamo.ConfigurationError{Field: "regularization", Reason: fmt.Sprintf("%g is negative", s.Regularization)}
	}
	return nil
}

// ReactionForces solves
//
//	(J W Jᵀ + εI) λ = −(J̇v + J W F + αJv + βC)
//
// and returns Jᵀλ. invMass, vel and explicit are flattened per coordinate
// (length 3n). An empty system yields zero forces.
func (s *Solver) ReactionForces(sys constraint.Assembled, invMass, vel, explicit []float64) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if sys.Jacobian == nil || sys.JacobianDot == nil {
		return nil, &dynamo.ConfigurationError{Field: "system", Reason: "missing jacobian"}
	}
	cols := sys.Jacobian.Cols
	for _, arg := range []struct {
		name string
		v    []float64
	}{{"inverse masses", invMass}, {"velocities", vel}, {"forces", explicit}} {
		if len(arg.v) != cols {
			return nil, &dynamo.ConfigurationError{Field: arg.name, Reason: fmt.Sprintf("length %d, want %d", len(arg.v), cols)}
		}
	}

	m := sys.Rows()
	if m == 0 {
		return make([]float64, cols), nil
	}
	if sys.Jacobian.Rows != m || sys.JacobianDot.Rows != m || sys.JacobianDot.Cols != cols {
		return nil, &dynamo.ConfigurationError{Field: "system", Reason: "jacobian shape does not match values"}
	}

	jw, err := sys.Jacobian.ScaleCols(invMass)
	if err != nil {
		return nil, err
	}
	mat, err := jw.Mul(sys.Jacobian.T())
	if err != nil {
		return nil, err
	}
	mat.AddIdentity(s.Regularization)

	jdv, err := sys.JacobianDot.MulVec(vel)
	if err != nil {
		return nil, err
	}
	jv, err := sys.Jacobian.MulVec(vel)
	if err != nil {
		return nil, err
	}
	jwf, err := jw.MulVec(explicit)
	if err != nil {
		return nil, err
	}

	rhs := make([]float64, m)
	for i := range rhs {
		rhs[i] = -(jdv[i] + jwf[i] + s.DampingRate*jv[i] + s.SpringRate*sys.Values[i])
	}

	lambda, err := linalg.Solve(mat, rhs)
	if err != nil {
		return nil, fmt.Errorf("reaction forces: %w", err)
	}
	return sys.Jacobian.T().MulVec(lambda)
}
