package constraint

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/linalg"
	"github.com/san-kum/hydrostat/internal/topology"
)

// PlanarFaces keeps every face flat. Each face vertex contributes one row:
// its signed distance from the face's best-fit plane through the centroid.
type PlanarFaces struct {
	base
	// Faces overrides the topology's face list when non-nil.
	Faces [][]int
	faces [][]int
	arity int
}

func NewPlanarFaces() *PlanarFaces { return &PlanarFaces{} }

func (p *PlanarFaces) Kind() Kind { return KindPlanarFaces }

func (p *PlanarFaces) Initialize(topo *topology.Topology, positions []mgl64.Vec3) error {
	if err := p.start(topo, positions); err != nil {
		return err
	}
	faces := p.Faces
	if faces == nil {
		faces = topo.Faces
	}
	if len(faces) == 0 {
		return &dynamo.ConfigurationError{Field: "faces", Reason: "topology has no faces"}
	}

	arity := len(faces[0])
	for i, f := range faces {
		if len(f) != arity {
			return &dynamo.ValidationError{Object: "face", Index: i, Reason: fmt.Sprintf("has %d vertices, want %d", len(f), arity)}
		}
		if arity < 3 {
			return &dynamo.ValidationError{Object: "face", Index: i, Reason: "needs at least 3 vertices"}
		}
		seen := make(map[int]bool, arity)
		for _, v := range f {
			if v < 0 || v >= topo.NumVertices {
				return &dynamo.ValidationError{Object: "face", Index: i, Reason: fmt.Sprintf("vertex %d out of range", v)}
			}
			if seen[v] {
				return &dynamo.ValidationError{Object: "face", Index: i, Reason: fmt.Sprintf("repeats vertex %d", v)}
			}
			seen[v] = true
		}
	}
	p.faces = faces
	p.arity = arity
	p.ready = true
	return nil
}

func (p *PlanarFaces) Evaluate(positions, velocities []mgl64.Vec3) (Output, error) {
	if err := p.check(p.Kind(), positions, velocities); err != nil {
		return Output{}, err
	}
	out := newOutput(len(p.faces)*p.arity, p.n)
	pts := make([]mgl64.Vec3, p.arity)
	vels := make([]mgl64.Vec3, p.arity)
	share := 1 / float64(p.arity)

	for fi, face := range p.faces {
		for i, v := range face {
			pts[i], vels[i] = positions[v], velocities[v]
		}
		in, err := linalg.CovarianceInput(pts, vels)
		if err != nil {
			return Output{}, err
		}
		d, err := linalg.EigenDerivatives(in)
		if err != nil {
			return Output{}, fmt.Errorf("face %d: %w", fi, err)
		}

		c, cv := linalg.Centroid(pts), linalg.Centroid(vels)
		for i := range face {
			row := fi*p.arity + i
			r, rd := pts[i].Sub(c), vels[i].Sub(cv)
			out.Values[row] = r.Dot(d.Normal)

			for w, vw := range face {
				delta := -share
				if w == i {
					delta += 1
				}
				for k := 0; k < 3; k++ {
					dof := 3*w + k
					out.Jacobian.Set(row, 3*vw+k, delta*d.Normal[k]+r.Dot(d.DNormal[dof]))
					out.JacobianDot.Set(row, 3*vw+k,
						delta*d.NormalDot[k]+rd.Dot(d.DNormal[dof])+r.Dot(d.DNormalDot[dof]))
				}
			}
		}
	}
	return out, nil
}
