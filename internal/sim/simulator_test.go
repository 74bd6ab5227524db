package sim

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/san-kum/hydrostat/internal/constraint"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/integrators"
	"github.com/san-kum/hydrostat/internal/physics"
	"github.com/san-kum/hydrostat/internal/topology"
)

type testDynamics struct{}

func (t *testDynamics) Derive(x dynamo.State, u dynamo.Control, time float64) (dynamo.State, error) {
	return dynamo.State{-x[0]}, nil
}

func (t *testDynamics) StateDim() int   { return 1 }
func (t *testDynamics) ControlDim() int { return 0 }

// blowup fails once time reaches at.
type blowup struct{ at float64 }

func (b *blowup) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	if t >= b.at {
		return nil, &dynamo.NumericalError{Op: "derive", Reason: "singular"}
	}
	return dynamo.State{1}, nil
}

func (b *blowup) StateDim() int   { return 1 }
func (b *blowup) ControlDim() int { return 0 }

type nanDynamics struct{}

func (n *nanDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	return dynamo.State{math.NaN()}, nil
}

func (n *nanDynamics) StateDim() int   { return 1 }
func (n *nanDynamics) ControlDim() int { return 0 }

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(x dynamo.State, u dynamo.Control, time float64) {
	t.count++
	t.sum += x[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

func TestSimulatorRun(t *testing.T) {
	sim := New(&testDynamics{}, integrators.NewEuler(), nil)

	cfg := dynamo.Config{Dt: 0.1, Steps: 10}
	result, err := sim.Run(context.Background(), dynamo.State{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}
	if len(result.Controls) != 10 {
		t.Errorf("expected 10 controls, got %d", len(result.Controls))
	}
	if math.Abs(result.Times[10]-1.0) > 1e-12 {
		t.Errorf("final time = %v, want 1", result.Times[10])
	}

	finalState := result.States[len(result.States)-1][0]
	expected := math.Pow(0.9, 10)
	if math.Abs(finalState-expected) > 1e-12 {
		t.Errorf("expected final state %.6f, got %.6f", expected, finalState)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(&testDynamics{}, integrators.NewEuler(), nil)

	tests := []struct {
		name string
		x0   dynamo.State
		cfg  dynamo.Config
	}{
		{"zero dt", dynamo.State{1}, dynamo.Config{Dt: 0, Steps: 10}},
		{"negative dt", dynamo.State{1}, dynamo.Config{Dt: -0.1, Steps: 10}},
		{"zero steps", dynamo.State{1}, dynamo.Config{Dt: 0.1, Steps: 0}},
		{"wrong state length", dynamo.State{1, 2}, dynamo.Config{Dt: 0.1, Steps: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), tt.x0, tt.cfg)
			if !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestSimulatorMetrics(t *testing.T) {
	sim := New(&testDynamics{}, integrators.NewEuler(), nil)
	metric := &testMetric{}
	sim.AddMetric(metric)

	result, err := sim.Run(context.Background(), dynamo.State{1.0}, dynamo.Config{Dt: 0.1, Steps: 10})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
}

func TestSimulatorStopsOnFailure(t *testing.T) {
	var buf bytes.Buffer
	sim := New(&blowup{at: 0.25}, integrators.NewEuler(), nil, WithLogger(zerolog.New(&buf)))

	result, err := sim.Run(context.Background(), dynamo.State{0}, dynamo.Config{Dt: 0.1, Steps: 10})
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected simulation error, got %v", err)
	}
	if simErr.Step != 3 || math.Abs(simErr.Time-0.3) > 1e-12 {
		t.Errorf("failed at step %d t=%v, want step 3 t=0.3", simErr.Step, simErr.Time)
	}
	if !errors.Is(err, dynamo.ErrNumerical) {
		t.Error("simulation error should unwrap to the numerical error")
	}
	if len(result.States) != 4 || result.StepsTaken != 3 {
		t.Errorf("kept %d states, %d steps; want 4, 3", len(result.States), result.StepsTaken)
	}
	if !strings.Contains(buf.String(), "simulation step failed") {
		t.Errorf("failure not logged: %s", buf.String())
	}
}

func TestSimulatorStep(t *testing.T) {
	sim := New(&testDynamics{}, integrators.NewEuler(), nil)
	metric := &testMetric{}
	sim.AddMetric(metric)

	x, _, err := sim.Step(dynamo.State{2}, 0, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if x[0] != 1 {
		t.Errorf("x = %v, want 1", x[0])
	}
	if metric.count != 1 {
		t.Errorf("expected 1 observation, got %d", metric.count)
	}
	if _, _, err := sim.Step(dynamo.State{1, 2}, 0, 0.5); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if _, _, err := New(&nanDynamics{}, integrators.NewEuler(), nil).Step(dynamo.State{0}, 0, 0.1); !errors.Is(err, dynamo.ErrNumerical) {
		t.Errorf("expected numerical error, got %v", err)
	}
}

func TestSimulatorRejectsNaN(t *testing.T) {
	sim := New(&nanDynamics{}, integrators.NewEuler(), nil)
	_, err := sim.Run(context.Background(), dynamo.State{0}, dynamo.Config{Dt: 0.1, Steps: 3, ValidateState: true})
	if !errors.Is(err, dynamo.ErrNumerical) {
		t.Errorf("expected numerical error, got %v", err)
	}
}

func TestSimulatorCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := New(&testDynamics{}, integrators.NewEuler(), nil)
	result, err := sim.Run(ctx, dynamo.State{1}, dynamo.Config{Dt: 0.1, Steps: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(result.States) != 1 {
		t.Errorf("expected only the initial state, got %d", len(result.States))
	}
}

func TestSimulateShape(t *testing.T) {
	var seen []float64
	ctrl := dynamo.ControllerFunc(func(x dynamo.State, t float64) dynamo.Control {
		seen = append(seen, t)
		return dynamo.Control{}
	})

	states, controls, err := Simulate(&testDynamics{}, integrators.NewEuler(), dynamo.State{1}, ctrl, 5, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 5 || len(controls) != 4 {
		t.Fatalf("got %d states and %d controls, want 5 and 4", len(states), len(controls))
	}
	if states[0][0] != 1 {
		t.Errorf("first row = %v, want the initial state", states[0])
	}
	for i, ti := range seen {
		if math.Abs(ti-float64(i)*0.1) > 1e-12 {
			t.Errorf("control %d computed at t=%v", i, ti)
		}
	}

	states, controls, err = Simulate(&testDynamics{}, integrators.NewEuler(), dynamo.State{1}, nil, 1, 0.1)
	if err != nil || len(states) != 1 || len(controls) != 0 {
		t.Errorf("single step: %d states, %d controls, err %v", len(states), len(controls), err)
	}
}

func TestSimulateReturnsPartialTrajectory(t *testing.T) {
	states, controls, err := Simulate(&blowup{at: 0.15}, integrators.NewEuler(), dynamo.State{0}, nil, 10, 0.1)
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected simulation error, got %v", err)
	}
	if len(states) != 3 || len(controls) != 2 {
		t.Errorf("got %d states and %d controls, want 3 and 2", len(states), len(controls))
	}
}

func TestSimulateIsIdempotent(t *testing.T) {
	arm, err := topology.NewArm(topology.DefaultArmSpec(1))
	if err != nil {
		t.Fatal(err)
	}
	set := constraint.NewSet(
		constraint.NewConstantVolume(),
		constraint.NewPlanarFaces(),
		constraint.NewFixedVertex(topology.BaseRing()...),
	)
	dyn, err := physics.New(arm, set)
	if err != nil {
		t.Fatal(err)
	}

	x0 := dyn.InitialState()
	states, _, err := Simulate(dyn, integrators.NewRK4(), x0, nil, 20, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	final := states[len(states)-1]
	if d := final.Sub(x0).Norm(); d > 1e-9 {
		t.Errorf("rest arm drifted by %v", d)
	}
}
