package topology

import (
	"fmt"

	"github.com/san-kum/hydrostat/internal/dynamo"
)

// Cell is a closed volume described by an apex vertex and the boundary
// triangles it spans tetrahedra with.
type Cell struct {
	Apex      int
	Triangles [][3]int
}

// Topology is the integer-indexed connectivity of a particle system. Every
// reference is a vertex index in [0, NumVertices).
type Topology struct {
	NumVertices int
	Edges       [][2]int
	Faces       [][]int
	Cells       []Cell
}

// FaceArity returns the shared vertex count of all faces, or 0 when there
// are none.
func (t *Topology) FaceArity() int {
	if len(t.Faces) == 0 {
		return 0
	}
	return len(t.Faces[0])
}

func (t *Topology) inRange(v int) bool { return v >= 0 && v < t.NumVertices }

// Validate checks index ranges, face arity and cell shape.
func (t *Topology) Validate() error {
	if t.NumVertices <= 0 {
		return &dynamo.ValidationError{Object: "topology", Index: -1, Reason: "no vertices"}
	}

	for i, e := range t.Edges {
		if !t.inRange(e[0]) || !t.inRange(e[1]) {
			return &dynamo.ValidationError{Object: "edge", Index: i, Reason: fmt.Sprintf("vertex out of range in %v", e)}
		}
		if e[0] == e[1] {
			return &dynamo.ValidationError{Object: "edge", Index: i, Reason: "joins a vertex to itself"}
		}
	}

	arity := t.FaceArity()
	for i, f := range t.Faces {
		if len(f) != arity {
			return &dynamo.ValidationError{Object: "face", Index: i, Reason: fmt.Sprintf("has %d vertices, want %d", len(f), arity)}
		}
		if len(f) < 3 {
			return &dynamo.ValidationError{Object: "face", Index: i, Reason: "needs at least 3 vertices"}
		}
		seen := make(map[int]bool, len(f))
		for _, v := range f {
			if !t.inRange(v) {
				return &dynamo.ValidationError{Object: "face", Index: i, Reason: fmt.Sprintf("vertex %d out of range", v)}
			}
			if seen[v] {
				return &dynamo.ValidationError{Object: "face", Index: i, Reason: fmt.Sprintf("repeats vertex %d", v)}
			}
			seen[v] = true
		}
	}

	for i, c := range t.Cells {
		if !t.inRange(c.Apex) {
			return &dynamo.ValidationError{Object: "cell", Index: i, Reason: fmt.Sprintf("apex %d out of range", c.Apex)}
		}
		if len(c.Triangles) == 0 {
			return &dynamo.ValidationError{Object: "cell", Index: i, Reason: "has no triangles"}
		}
		for _, tri := range c.Triangles {
			for _, v := range tri {
				if !t.inRange(v) {
					return &dynamo.ValidationError{Object: "cell", Index: i, Reason: fmt.Sprintf("triangle vertex %d out of range", v)}
				}
			}
		}
	}

	return nil
}

// Triangulate fans a polygon from its first vertex: (a,b,c), (a,c,d), ...
func Triangulate(face []int) [][3]int {
	if len(face) < 3 {
		return nil
	}
	tris := make([][3]int, 0, len(face)-2)
	for i := 1; i+1 < len(face); i++ {
		tris = append(tris, [3]int{face[0], face[i], face[i+1]})
	}
	return tris
}

// CellFromFaces builds a cell whose triangles come from the faces that do
// not touch the apex. Faces through the apex span zero-volume tetrahedra.
func CellFromFaces(apex int, faces [][]int) Cell {
	c := Cell{Apex: apex}
	for _, f := range faces {
		touches := false
		for _, v := range f {
			if v == apex {
				touches = true
				break
			}
		}
		if !touches {
			c.Triangles = append(c.Triangles, Triangulate(f)...)
		}
	}
	return c
}
