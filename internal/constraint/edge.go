package constraint

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/topology"
)

// EdgeLengthBound keeps edge lengths inside [Min, Max]. Only edges outside
// the interval produce rows, so the row count changes between steps.
type EdgeLengthBound struct {
	base
	Min   float64
	Max   float64
	edges [][2]int
}

// NewEdgeLengthBound bounds every edge of the topology. Use math.Inf(1) for
// an open upper bound.
func NewEdgeLengthBound(min, max float64) *EdgeLengthBound {
	return &EdgeLengthBound{Min: min, Max: max}
}

func (e *EdgeLengthBound) Kind() Kind { return KindEdgeLengthBound }

func (e *EdgeLengthBound) Initialize(topo *topology.Topology, positions []mgl64.Vec3) error {
	if err := e.start(topo, positions); err != nil {
		return err
	}
	if math.IsNaN(e.Min) || math.IsNaN(e.Max) || e.Min < 0 || e.Min > e.Max {
		return &dynamo.ConfigurationError{Field: "edge_bounds", Reason: fmt.Sprintf("invalid interval [%g, %g]", e.Min, e.Max)}
	}
	for i, edge := range topo.Edges {
		for _, v := range edge {
			if v < 0 || v >= topo.NumVertices {
				return &dynamo.ValidationError{Object: "edge", Index: i, Reason: fmt.Sprintf("vertex %d out of range", v)}
			}
		}
	}
	e.edges = topo.Edges
	e.ready = true
	return nil
}

// ActiveEdges returns the indices of edges currently outside the bounds.
func (e *EdgeLengthBound) ActiveEdges(positions []mgl64.Vec3) []int {
	var active []int
	for i, edge := range e.edges {
		l := positions[edge[0]].Sub(positions[edge[1]]).Len()
		if l == 0 {
			continue
		}
		if l > e.Max || l < e.Min {
			active = append(active, i)
		}
	}
	return active
}

func (e *EdgeLengthBound) Evaluate(positions, velocities []mgl64.Vec3) (Output, error) {
	if err := e.check(e.Kind(), positions, velocities); err != nil {
		return Output{}, err
	}
	active := e.ActiveEdges(positions)
	out := newOutput(len(active), e.n)
	for row, idx := range active {
		a, b := e.edges[idx][0], e.edges[idx][1]
		d := positions[a].Sub(positions[b])
		l := d.Len()
		dir := d.Mul(1 / l)

		bound := e.Max
		if math.Abs(l-e.Min) < math.Abs(l-e.Max) {
			bound = e.Min
		}
		out.Values[row] = l - bound

		rel := velocities[a].Sub(velocities[b])
		dirDot := rel.Sub(dir.Mul(dir.Dot(rel))).Mul(1 / l)

		addVec(out.Jacobian, row, a, dir)
		addVec(out.Jacobian, row, b, dir.Mul(-1))
		addVec(out.JacobianDot, row, a, dirDot)
		addVec(out.JacobianDot, row, b, dirDot.Mul(-1))
	}
	return out, nil
}
