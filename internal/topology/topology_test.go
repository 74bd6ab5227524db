package topology

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
)

func TestNewArmCounts(t *testing.T) {
	tests := []struct {
		cells    int
		vertices int
		edges    int
		faces    int
	}{
		{1, 8, 16, 6},
		{2, 12, 28, 11},
		{5, 24, 64, 26},
	}

	for _, tt := range tests {
		m, err := NewArm(DefaultArmSpec(tt.cells))
		if err != nil {
			t.Fatalf("cells=%d: %v", tt.cells, err)
		}
		if m.NumVertices() != tt.vertices {
			t.Errorf("cells=%d: vertices = %d, want %d", tt.cells, m.NumVertices(), tt.vertices)
		}
		if len(m.Topology.Edges) != tt.edges {
			t.Errorf("cells=%d: edges = %d, want %d", tt.cells, len(m.Topology.Edges), tt.edges)
		}
		if len(m.Topology.Faces) != tt.faces {
			t.Errorf("cells=%d: faces = %d, want %d", tt.cells, len(m.Topology.Faces), tt.faces)
		}
		if len(m.Topology.Cells) != tt.cells {
			t.Errorf("cells=%d: cells = %d", tt.cells, len(m.Topology.Cells))
		}
		if len(m.EdgeDamping) != tt.edges || len(m.Masses) != tt.vertices {
			t.Errorf("cells=%d: property arrays not sized to topology", tt.cells)
		}
	}
}

func TestArmCellTriangulation(t *testing.T) {
	m, err := NewArm(DefaultArmSpec(1))
	if err != nil {
		t.Fatal(err)
	}
	cell := m.Topology.Cells[0]
	if cell.Apex != 0 {
		t.Errorf("apex = %d, want 0", cell.Apex)
	}
	if len(cell.Triangles) != 6 {
		t.Fatalf("triangles = %d, want 6", len(cell.Triangles))
	}

	// Apex-relative triple products of outward triangles sum to 6·volume.
	apex := m.Positions[cell.Apex]
	sum := 0.0
	for _, tri := range cell.Triangles {
		for _, v := range tri {
			if v == cell.Apex {
				t.Fatalf("triangle %v touches the apex", tri)
			}
		}
		r0 := m.Positions[tri[0]].Sub(apex)
		r1 := m.Positions[tri[1]].Sub(apex)
		r2 := m.Positions[tri[2]].Sub(apex)
		sum += r0.Dot(r1.Cross(r2))
	}
	if math.Abs(sum-6) > 1e-12 {
		t.Errorf("triple product sum = %v, want 6", sum)
	}
}

func TestTriangulate(t *testing.T) {
	got := Triangulate([]int{4, 5, 6, 7})
	want := [][3]int{{4, 5, 6}, {4, 6, 7}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Triangulate = %v, want %v", got, want)
	}
	if Triangulate([]int{1, 2}) != nil {
		t.Error("expected nil for a degenerate polygon")
	}
}

func TestTopologyValidate(t *testing.T) {
	tests := []struct {
		name   string
		topo   Topology
		object string
	}{
		{"no vertices", Topology{}, "topology"},
		{"edge out of range", Topology{NumVertices: 3, Edges: [][2]int{{0, 3}}}, "edge"},
		{"self edge", Topology{NumVertices: 3, Edges: [][2]int{{1, 1}}}, "edge"},
		{"mixed arity", Topology{NumVertices: 5, Faces: [][]int{{0, 1, 2, 3}, {0, 1, 4}}}, "face"},
		{"short face", Topology{NumVertices: 3, Faces: [][]int{{0, 1}}}, "face"},
		{"repeated vertex", Topology{NumVertices: 4, Faces: [][]int{{0, 1, 1}}}, "face"},
		{"face out of range", Topology{NumVertices: 3, Faces: [][]int{{0, 1, -1}}}, "face"},
		{"cell apex", Topology{NumVertices: 3, Cells: []Cell{{Apex: 9, Triangles: [][3]int{{0, 1, 2}}}}}, "cell"},
		{"empty cell", Topology{NumVertices: 3, Cells: []Cell{{Apex: 0}}}, "cell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.topo.Validate()
			var ve *dynamo.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Object != tt.object {
				t.Errorf("object = %q, want %q", ve.Object, tt.object)
			}
		})
	}
}

func TestModelValidate(t *testing.T) {
	m, err := NewArm(DefaultArmSpec(1))
	if err != nil {
		t.Fatal(err)
	}

	bad := *m
	bad.Masses = bad.Masses[:3]
	if err := bad.Validate(); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("short masses: got %v", err)
	}

	bad = *m
	bad.Masses = append([]float64{0}, m.Masses[1:]...)
	if err := bad.Validate(); !errors.Is(err, dynamo.ErrValidation) {
		t.Errorf("zero mass: got %v", err)
	}

	bad = *m
	bad.EdgeDamping = []float64{1}
	if err := bad.Validate(); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("short edge damping: got %v", err)
	}

	if _, err := NewArm(ArmSpec{Cells: 0}); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("zero cells: got %v", err)
	}
}

func TestPackUnpack(t *testing.T) {
	pos := []mgl64.Vec3{{1, 2, 3}, {4, 5, 6}}
	vel := []mgl64.Vec3{{-1, 0, 1}, {0.5, 0.5, 0.5}}
	x := Pack(pos, vel)
	if len(x) != 12 || x[3] != 4 || x[6] != -1 || x[11] != 0.5 {
		t.Fatalf("Pack = %v", x)
	}

	p, v, err := Unpack(x, 2)
	if err != nil {
		t.Fatal(err)
	}
	if p[1] != pos[1] || v[0] != vel[0] {
		t.Errorf("Unpack = %v %v", p, v)
	}

	if _, _, err := Unpack(x, 3); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}

	z := Pack(pos, nil)
	if z[6] != 0 || z[11] != 0 {
		t.Errorf("nil velocities should pack as zeros: %v", z)
	}
}

func TestInverseMasses(t *testing.T) {
	m := &Model{Masses: []float64{2, 0.5}}
	w := m.InverseMasses()
	want := []float64{0.5, 0.5, 0.5, 2, 2, 2}
	for i := range want {
		if w[i] != want[i] {
			t.Fatalf("InverseMasses = %v, want %v", w, want)
		}
	}
}
