package topology

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
)

const (
	DefaultVertexMass    = 1.0 / 8
	DefaultVertexDamping = 1.0 / 8
	DefaultEdgeDamping   = 1.0
)

// ArmSpec describes a stack of cubic cells along +z. Consecutive cells share
// a square ring of four vertices.
type ArmSpec struct {
	Cells         int
	Width         float64
	Length        float64
	Height        float64
	VertexMass    float64
	VertexDamping float64
	EdgeDamping   float64
}

func DefaultArmSpec(cells int) ArmSpec {
	return ArmSpec{
		Cells:         cells,
		Width:         1,
		Length:        1,
		Height:        1,
		VertexMass:    DefaultVertexMass,
		VertexDamping: DefaultVertexDamping,
		EdgeDamping:   DefaultEdgeDamping,
	}
}

// Local vertex numbering of one cube: 0-3 bottom ring, 4-7 top ring, both
// counter-clockwise seen from +z.
var (
	cubeEdges = [][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
		{0, 6}, {1, 7}, {2, 4}, {3, 5},
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
	}
	// Outward-facing quads.
	cubeFaces = [][]int{
		{0, 3, 2, 1},
		{0, 1, 5, 4},
		{1, 2, 6, 5},
		{2, 3, 7, 6},
		{3, 0, 4, 7},
		{4, 5, 6, 7},
	}
)

// NewArm builds the model for spec. Shared edges and faces appear once.
func NewArm(spec ArmSpec) (*Model, error) {
	if spec.Cells < 1 {
		return nil, &dynamo.ConfigurationError{Field: "cells", Reason: fmt.Sprintf("%d, need at least 1", spec.Cells)}
	}
	if !(spec.Width > 0 && spec.Length > 0 && spec.Height > 0) {
		return nil, &dynamo.ConfigurationError{Field: "cell_size", Reason: "dimensions must be positive"}
	}
	if !(spec.VertexMass > 0) {
		return nil, &dynamo.ConfigurationError{Field: "vertex_mass", Reason: "must be positive"}
	}

	levels := spec.Cells + 1
	n := 4 * levels
	topo := Topology{NumVertices: n}
	positions := make([]mgl64.Vec3, 0, n)
	for k := 0; k < levels; k++ {
		z := float64(k) * spec.Height
		positions = append(positions,
			mgl64.Vec3{0, 0, z},
			mgl64.Vec3{spec.Width, 0, z},
			mgl64.Vec3{spec.Width, spec.Length, z},
			mgl64.Vec3{0, spec.Length, z},
		)
	}

	seenEdge := make(map[[2]int]bool)
	seenFace := make(map[string]bool)
	for c := 0; c < spec.Cells; c++ {
		global := func(local int) int { return 4*c + local }

		for _, e := range cubeEdges {
			a, b := global(e[0]), global(e[1])
			key := [2]int{min(a, b), max(a, b)}
			if seenEdge[key] {
				continue
			}
			seenEdge[key] = true
			topo.Edges = append(topo.Edges, [2]int{a, b})
		}

		faces := make([][]int, 0, len(cubeFaces))
		for _, f := range cubeFaces {
			g := make([]int, len(f))
			for i, v := range f {
				g[i] = global(v)
			}
			faces = append(faces, g)

			key := faceKey(g)
			if seenFace[key] {
				continue
			}
			seenFace[key] = true
			topo.Faces = append(topo.Faces, g)
		}

		topo.Cells = append(topo.Cells, CellFromFaces(global(0), faces))
	}

	m := &Model{
		Topology:      topo,
		Positions:     positions,
		Velocities:    make([]mgl64.Vec3, n),
		Masses:        fill(n, spec.VertexMass),
		VertexDamping: fill(n, spec.VertexDamping),
		EdgeDamping:   fill(len(topo.Edges), spec.EdgeDamping),
	}
	return m, m.Validate()
}

// BaseRing returns the four vertices of the arm's bottom square.
func BaseRing() []int { return []int{0, 1, 2, 3} }

// TipRing returns the four vertices of the top square of an arm with the
// given cell count.
func TipRing(cells int) []int {
	b := 4 * cells
	return []int{b, b + 1, b + 2, b + 3}
}

func faceKey(f []int) string {
	s := append([]int(nil), f...)
	sort.Ints(s)
	return fmt.Sprint(s)
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
