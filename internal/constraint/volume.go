package constraint

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/topology"
)

// ConstantVolume keeps every cell at its initial volume measure. The
// measure is the sum of apex-relative triple products over the cell's
// boundary triangles, six times the geometric volume.
type ConstantVolume struct {
	base
	cells     []topology.Cell
	reference []float64
}

func NewConstantVolume() *ConstantVolume { return &ConstantVolume{} }

func (c *ConstantVolume) Kind() Kind { return KindConstantVolume }

func (c *ConstantVolume) Initialize(topo *topology.Topology, positions []mgl64.Vec3) error {
	if err := c.start(topo, positions); err != nil {
		return err
	}
	if len(topo.Cells) == 0 {
		return &dynamo.ConfigurationError{Field: "cells", Reason: "topology has no cells"}
	}
	for i, cell := range topo.Cells {
		if cell.Apex < 0 || cell.Apex >= topo.NumVertices {
			return &dynamo.ValidationError{Object: "cell", Index: i, Reason: fmt.Sprintf("apex %d out of range", cell.Apex)}
		}
		for _, tri := range cell.Triangles {
			for _, v := range tri {
				if v < 0 || v >= topo.NumVertices {
					return &dynamo.ValidationError{Object: "cell", Index: i, Reason: fmt.Sprintf("vertex %d out of range", v)}
				}
			}
		}
	}
	c.cells = topo.Cells
	c.reference = make([]float64, len(c.cells))
	for i, cell := range c.cells {
		c.reference[i] = cellMeasure(cell, positions, nil, nil, -1)
	}
	c.ready = true
	return nil
}

// References returns the measures captured at initialization.
func (c *ConstantVolume) References() []float64 {
	return append([]float64(nil), c.reference...)
}

func (c *ConstantVolume) Evaluate(positions, velocities []mgl64.Vec3) (Output, error) {
	if err := c.check(c.Kind(), positions, velocities); err != nil {
		return Output{}, err
	}
	out := newOutput(len(c.cells), c.n)
	for i, cell := range c.cells {
		out.Values[i] = cellMeasure(cell, positions, velocities, &out, i) - c.reference[i]
	}
	return out, nil
}

// cellMeasure returns the cell's triple-product sum. When out is non-nil it
// also writes the Jacobian and its time derivative into row.
func cellMeasure(cell topology.Cell, pos, vel []mgl64.Vec3, out *Output, row int) float64 {
	apex := pos[cell.Apex]
	var apexVel mgl64.Vec3
	if vel != nil {
		apexVel = vel[cell.Apex]
	}

	var sum mgl64.Vec3
	var sumDot mgl64.Vec3
	total := 0.0
	for _, tri := range cell.Triangles {
		if tri[0] == cell.Apex || tri[1] == cell.Apex || tri[2] == cell.Apex {
			continue
		}
		r0, r1, r2 := pos[tri[0]].Sub(apex), pos[tri[1]].Sub(apex), pos[tri[2]].Sub(apex)
		co := [3]mgl64.Vec3{r1.Cross(r2), r2.Cross(r0), r0.Cross(r1)}
		total += r0.Dot(co[0])
		if out == nil {
			continue
		}

		v0, v1, v2 := vel[tri[0]].Sub(apexVel), vel[tri[1]].Sub(apexVel), vel[tri[2]].Sub(apexVel)
		coDot := [3]mgl64.Vec3{
			v1.Cross(r2).Add(r1.Cross(v2)),
			v2.Cross(r0).Add(r2.Cross(v0)),
			v0.Cross(r1).Add(r0.Cross(v1)),
		}
		for k, v := range tri {
			addVec(out.Jacobian, row, v, co[k])
			addVec(out.JacobianDot, row, v, coDot[k])
			sum = sum.Add(co[k])
			sumDot = sumDot.Add(coDot[k])
		}
	}
	if out != nil {
		addVec(out.Jacobian, row, cell.Apex, sum.Mul(-1))
		addVec(out.JacobianDot, row, cell.Apex, sumDot.Mul(-1))
	}
	return total
}

// Volume returns the geometric volume of a cell, one sixth of its measure.
func Volume(cell topology.Cell, positions []mgl64.Vec3) float64 {
	return cellMeasure(cell, positions, nil, nil, -1) / 6
}
