package constraint

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/linalg"
	"github.com/san-kum/hydrostat/internal/topology"
)

// AssemblyError reports a constraint whose output shape disagrees with its
// own row count or the system's column count.
type AssemblyError struct {
	Kind   Kind
	Reason string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble %s: %s", e.Kind, e.Reason)
}

func (e *AssemblyError) Unwrap() error { return dynamo.ErrValidation }

// Assembled is the stacked output of every constraint in a Set.
type Assembled struct {
	Values      []float64
	Jacobian    *linalg.Dense
	JacobianDot *linalg.Dense
}

func (a Assembled) Rows() int { return len(a.Values) }

// Set is an ordered collection of constraints. Constraints are kept sorted
// by Kind; constraints of the same kind keep insertion order.
type Set struct {
	items []Constraint
	n     int
}

func NewSet(items ...Constraint) *Set {
	s := &Set{}
	s.Add(items...)
	return s
}

func (s *Set) Add(items ...Constraint) {
	for _, c := range items {
		if c != nil {
			s.items = append(s.items, c)
		}
	}
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].Kind() < s.items[j].Kind()
	})
}

func (s *Set) Len() int { return len(s.items) }

// Constraints returns the constraints in assembly order.
func (s *Set) Constraints() []Constraint {
	return append([]Constraint(nil), s.items...)
}

func (s *Set) Kinds() []Kind {
	kinds := make([]Kind, len(s.items))
	for i, c := range s.items {
		kinds[i] = c.Kind()
	}
	return kinds
}

// Initialize initializes every constraint against the same rest state.
func (s *Set) Initialize(topo *topology.Topology, positions []mgl64.Vec3) error {
	if topo == nil {
		return &dynamo.ConfigurationError{Field: "topology", Reason: "missing"}
	}
	for _, c := range s.items {
		if err := c.Initialize(topo, positions); err != nil {
			return fmt.Errorf("initialize %s: %w", c.Kind(), err)
		}
	}
	s.n = topo.NumVertices
	return nil
}

// Assemble evaluates every constraint and stacks the results. Constraints
// that currently produce no rows are skipped.
func (s *Set) Assemble(positions, velocities []mgl64.Vec3) (Assembled, error) {
	cols := 3 * s.n
	var values []float64
	var jac, jacDot []*linalg.Dense

	for _, c := range s.items {
		out, err := c.Evaluate(positions, velocities)
		if err != nil {
			return Assembled{}, fmt.Errorf("evaluate %s: %w", c.Kind(), err)
		}
		rows := out.Rows()
		if rows == 0 {
			continue
		}
		if out.Jacobian == nil || out.JacobianDot == nil {
			return Assembled{}, &AssemblyError{Kind: c.Kind(), Reason: "missing jacobian"}
		}
		if out.Jacobian.Rows != rows || out.JacobianDot.Rows != rows {
			return Assembled{}, &AssemblyError{
				Kind:   c.Kind(),
				Reason: fmt.Sprintf("%d values but jacobian rows %d/%d", rows, out.Jacobian.Rows, out.JacobianDot.Rows),
			}
		}
		if out.Jacobian.Cols != cols || out.JacobianDot.Cols != cols {
			return Assembled{}, &AssemblyError{
				Kind:   c.Kind(),
				Reason: fmt.Sprintf("jacobian cols %d/%d, want %d", out.Jacobian.Cols, out.JacobianDot.Cols, cols),
			}
		}
		values = append(values, out.Values...)
		jac = append(jac, out.Jacobian)
		jacDot = append(jacDot, out.JacobianDot)
	}

	j, err := linalg.VStack(cols, jac...)
	if err != nil {
		return Assembled{}, err
	}
	jd, err := linalg.VStack(cols, jacDot...)
	if err != nil {
		return Assembled{}, err
	}
	if values == nil {
		values = []float64{}
	}
	return Assembled{Values: values, Jacobian: j, JacobianDot: jd}, nil
}

// Violation returns the largest absolute constraint value.
func (s *Set) Violation(positions, velocities []mgl64.Vec3) (float64, error) {
	a, err := s.Assemble(positions, velocities)
	if err != nil {
		return 0, err
	}
	worst := 0.0
	for _, v := range a.Values {
		worst = math.Max(worst, math.Abs(v))
	}
	return worst, nil
}
