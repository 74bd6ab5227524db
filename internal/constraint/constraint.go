package constraint

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/linalg"
	"github.com/san-kum/hydrostat/internal/topology"
)

// Kind identifies a constraint variant. Its numeric order is the assembly
// order.
type Kind int

const (
	KindConstantVolume Kind = iota
	KindEdgeLengthBound
	KindFixedVertex
	KindPlanarFaces
)

func (k Kind) String() string {
	switch k {
	case KindConstantVolume:
		return "constant_volume"
	case KindEdgeLengthBound:
		return "edge_length"
	case KindFixedVertex:
		return "fixed_vertex"
	case KindPlanarFaces:
		return "planar_faces"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Constraint is a geometric condition C(p) = 0 over vertex positions.
// Initialize captures reference data once; Evaluate is a pure function of
// the current positions and velocities.
type Constraint interface {
	Kind() Kind
	Initialize(topo *topology.Topology, positions []mgl64.Vec3) error
	Evaluate(positions, velocities []mgl64.Vec3) (Output, error)
}

// Output holds m constraint rows. Jacobian and JacobianDot are m×3n with
// column 3*vertex+axis.
type Output struct {
	Values      []float64
	Jacobian    *linalg.Dense
	JacobianDot *linalg.Dense
}

func (o Output) Rows() int { return len(o.Values) }

func newOutput(rows, n int) Output {
	return Output{
		Values:      make([]float64, rows),
		Jacobian:    linalg.NewDense(rows, 3*n),
		JacobianDot: linalg.NewDense(rows, 3*n),
	}
}

// base carries the vertex count captured at initialization and the shared
// argument checks.
type base struct {
	n     int
	ready bool
}

func (b *base) start(topo *topology.Topology, positions []mgl64.Vec3) error {
	if topo == nil {
		return &dynamo.ConfigurationError{Field: "topology", Reason: "missing"}
	}
	if len(positions) != topo.NumVertices {
		return &dynamo.ConfigurationError{
			Field:  "positions",
			Reason: fmt.Sprintf("length %d, want %d", len(positions), topo.NumVertices),
		}
	}
	b.n = topo.NumVertices
	return nil
}

func (b *base) check(kind Kind, positions, velocities []mgl64.Vec3) error {
	if !b.ready {
		return &dynamo.ConfigurationError{Field: kind.String(), Reason: "evaluated before initialization"}
	}
	if len(positions) != b.n {
		return &dynamo.ConfigurationError{Field: "positions", Reason: fmt.Sprintf("length %d, want %d", len(positions), b.n)}
	}
	if len(velocities) != b.n {
		return &dynamo.ConfigurationError{Field: "velocities", Reason: fmt.Sprintf("length %d, want %d", len(velocities), b.n)}
	}
	return nil
}

func addVec(m *linalg.Dense, row, vertex int, v mgl64.Vec3) {
	m.Add(row, 3*vertex, v[0])
	m.Add(row, 3*vertex+1, v[1])
	m.Add(row, 3*vertex+2, v[2])
}
