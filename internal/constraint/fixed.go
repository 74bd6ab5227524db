package constraint

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/topology"
)

// FixedVertex pins vertices to the positions they had at initialization.
// Each vertex contributes three rows, one per axis.
type FixedVertex struct {
	base
	Vertices  []int
	reference []mgl64.Vec3
}

func NewFixedVertex(vertices ...int) *FixedVertex {
	return &FixedVertex{Vertices: vertices}
}

func (f *FixedVertex) Kind() Kind { return KindFixedVertex }

func (f *FixedVertex) Initialize(topo *topology.Topology, positions []mgl64.Vec3) error {
	if err := f.start(topo, positions); err != nil {
		return err
	}
	f.reference = make([]mgl64.Vec3, len(f.Vertices))
	for i, v := range f.Vertices {
		if v < 0 || v >= topo.NumVertices {
			return &dynamo.ValidationError{Object: "fixed vertex", Index: i, Reason: fmt.Sprintf("vertex %d out of range", v)}
		}
		f.reference[i] = positions[v]
	}
	f.ready = true
	return nil
}

func (f *FixedVertex) Evaluate(positions, velocities []mgl64.Vec3) (Output, error) {
	if err := f.check(f.Kind(), positions, velocities); err != nil {
		return Output{}, err
	}
	out := newOutput(3*len(f.Vertices), f.n)
	for i, v := range f.Vertices {
		delta := positions[v].Sub(f.reference[i])
		for axis := 0; axis < 3; axis++ {
			row := 3*i + axis
			out.Values[row] = delta[axis]
			out.Jacobian.Set(row, 3*v+axis, 1)
		}
	}
	return out, nil
}
