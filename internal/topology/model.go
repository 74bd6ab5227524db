package topology

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
)

// Model is a particle system: connectivity plus per-vertex and per-edge
// physical properties.
type Model struct {
	Topology      Topology
	Positions     []mgl64.Vec3
	Velocities    []mgl64.Vec3
	Masses        []float64
	VertexDamping []float64
	EdgeDamping   []float64
}

func (m *Model) NumVertices() int { return m.Topology.NumVertices }

// Validate checks the topology and that every per-element array matches
// it. Missing velocities are treated as zero.
func (m *Model) Validate() error {
	if err := m.Topology.Validate(); err != nil {
		return err
	}
	n := m.Topology.NumVertices
	if len(m.Positions) != n {
		return &dynamo.ConfigurationError{Field: "positions", Reason: fmt.Sprintf("length %d, want %d", len(m.Positions), n)}
	}
	if m.Velocities != nil && len(m.Velocities) != n {
		return &dynamo.ConfigurationError{Field: "velocities", Reason: fmt.Sprintf("length %d, want %d", len(m.Velocities), n)}
	}
	if len(m.Masses) != n {
		return &dynamo.ConfigurationError{Field: "masses", Reason: fmt.Sprintf("length %d, want %d", len(m.Masses), n)}
	}
	for i, mass := range m.Masses {
		if !(mass > 0) {
			return &dynamo.ValidationError{Object: "vertex", Index: i, Reason: fmt.Sprintf("mass %g must be positive", mass)}
		}
	}
	if m.VertexDamping != nil && len(m.VertexDamping) != n {
		return &dynamo.ConfigurationError{Field: "vertex_damping", Reason: fmt.Sprintf("length %d, want %d", len(m.VertexDamping), n)}
	}
	if m.EdgeDamping != nil && len(m.EdgeDamping) != len(m.Topology.Edges) {
		return &dynamo.ConfigurationError{Field: "edge_damping", Reason: fmt.Sprintf("length %d, want %d", len(m.EdgeDamping), len(m.Topology.Edges))}
	}
	return nil
}

// InverseMasses returns 1/m repeated once per axis (length 3n).
func (m *Model) InverseMasses() []float64 {
	w := make([]float64, 3*len(m.Masses))
	for i, mass := range m.Masses {
		inv := 1 / mass
		w[3*i], w[3*i+1], w[3*i+2] = inv, inv, inv
	}
	return w
}

// State packs the model's positions and velocities.
func (m *Model) State() dynamo.State {
	return Pack(m.Positions, m.Velocities)
}

// Pack flattens positions and velocities into [positions; velocities].
// A nil velocity slice packs as zeros.
func Pack(positions, velocities []mgl64.Vec3) dynamo.State {
	n := len(positions)
	x := make(dynamo.State, 6*n)
	for i, p := range positions {
		copy(x[3*i:3*i+3], p[:])
	}
	for i, v := range velocities {
		copy(x[3*n+3*i:3*n+3*i+3], v[:])
	}
	return x
}

// Unpack splits a flattened state of n vertices.
func Unpack(x dynamo.State, n int) ([]mgl64.Vec3, []mgl64.Vec3, error) {
	if len(x) != 6*n {
		return nil, nil, &dynamo.ConfigurationError{Field: "state", Reason: fmt.Sprintf("length %d, want %d", len(x), 6*n)}
	}
	pos := make([]mgl64.Vec3, n)
	vel := make([]mgl64.Vec3, n)
	for i := 0; i < n; i++ {
		pos[i] = mgl64.Vec3{x[3*i], x[3*i+1], x[3*i+2]}
		vel[i] = mgl64.Vec3{x[3*n+3*i], x[3*n+3*i+1], x[3*n+3*i+2]}
	}
	return pos, vel, nil
}
