package control

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/topology"
)

func arm(t *testing.T) *topology.Model {
	t.Helper()
	m, err := topology.NewArm(topology.DefaultArmSpec(2))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNone(t *testing.T) {
	ctrl := NewNone(2)
	u := ctrl.Compute(dynamo.State{1.0, 2.0}, 0.0)

	if len(u) != 2 {
		t.Errorf("expected 2 controls, got %d", len(u))
	}
	for i, v := range u {
		if v != 0 {
			t.Errorf("control[%d] should be 0, got %f", i, v)
		}
	}
}

func TestConstant(t *testing.T) {
	ctrl := NewConstant(3, 0.5)
	for i, v := range ctrl.Compute(nil, 0) {
		if v != 0.5 {
			t.Errorf("control[%d] = %v, want 0.5", i, v)
		}
	}
	if err := ctrl.SetParam("value", 2); err != nil || ctrl.Compute(nil, 0)[0] != 2 {
		t.Errorf("SetParam value failed: %v", err)
	}
	if err := ctrl.SetParam("gain", 1); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestFunc(t *testing.T) {
	ctrl := Func(func(x dynamo.State, t float64) dynamo.Control { return dynamo.Control{t} })
	if u := ctrl.Compute(nil, 1.5); u[0] != 1.5 {
		t.Errorf("got %v", u)
	}
}

func TestManual(t *testing.T) {
	ctrl := NewManual(3)
	if err := ctrl.SetControl(dynamo.Control{1, 2}); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	ctrl.SetEdges([]int{0, 2, 7}, 4)
	u := ctrl.Compute(nil, 0)
	if u[0] != 4 || u[1] != 0 || u[2] != 4 {
		t.Errorf("got %v", u)
	}
	u[0] = 99
	if ctrl.Compute(nil, 0)[0] != 4 {
		t.Error("Compute must return a copy")
	}
}

func TestWave(t *testing.T) {
	m := arm(t)
	w := NewWave(m, 2, 1, 4)
	u := w.Compute(m.State(), 0.25)
	if len(u) != len(m.Topology.Edges) {
		t.Fatalf("len = %d, want %d", len(u), len(m.Topology.Edges))
	}

	for i, e := range m.Topology.Edges {
		a, b := m.Positions[e[0]], m.Positions[e[1]]
		if a[2] == b[2] && u[i] != 0 {
			t.Errorf("ring edge %d driven with %v", i, u[i])
		}
		if u[i] < 0 || u[i] > 2 {
			t.Errorf("edge %d tension %v outside [0, 2]", i, u[i])
		}
	}

	// Vertical edge 0-4 has midpoint z=0.5; at t=0.25 the phase is 0.25-0.125.
	want := 2 * 0.5 * (1 + math.Sin(2*math.Pi*0.125))
	for i, e := range m.Topology.Edges {
		if e == [2]int{0, 4} && math.Abs(u[i]-want) > 1e-12 {
			t.Errorf("edge 0-4 tension %v, want %v", u[i], want)
		}
	}
}

func TestCurl(t *testing.T) {
	m := arm(t)
	c := NewCurl(m, 3, mgl64.Vec3{1, 0, 0})
	active := c.Active()
	if len(active) != 4 {
		t.Fatalf("active edges = %v, want the four +x axial edges", active)
	}
	u := c.Compute(nil, 0)
	for _, i := range active {
		e := m.Topology.Edges[i]
		if m.Positions[e[0]][0] != 1 || m.Positions[e[1]][0] != 1 {
			t.Errorf("edge %v is not on the +x side", e)
		}
		if u[i] != 3 {
			t.Errorf("edge %d tension %v, want 3", i, u[i])
		}
	}
}

func TestEdgePID(t *testing.T) {
	m := arm(t)
	pid := NewEdgePID(m, 10, 0.1, 5, 1)

	u := pid.Compute(m.State(), 0)
	for i, v := range u {
		if v != 0 {
			t.Errorf("edge %d: control %v at rest length", i, v)
		}
	}

	stretched := append([]mgl64.Vec3(nil), m.Positions...)
	for _, v := range topology.TipRing(2) {
		stretched[v] = stretched[v].Add(mgl64.Vec3{0, 0, 0.2})
	}
	u = pid.Compute(topology.Pack(stretched, nil), 0.1)
	for i, e := range m.Topology.Edges {
		grew := stretched[e[0]].Sub(stretched[e[1]]).Len() > m.Positions[e[0]].Sub(m.Positions[e[1]]).Len()+1e-12
		if grew && u[i] <= 0 {
			t.Errorf("edge %d stretched but control %v", i, u[i])
		}
	}

	pid.Reset()
	if err := pid.SetParam("kp", 1); err != nil {
		t.Fatal(err)
	}
	if pid.GetParams()["kp"] != 1 {
		t.Error("kp not updated")
	}
	if u := pid.Compute(dynamo.State{1, 2}, 0); len(u) != len(m.Topology.Edges) {
		t.Errorf("bad state should yield a zero control of full length, got %d", len(u))
	}
}
