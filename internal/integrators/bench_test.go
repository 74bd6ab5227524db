package integrators

import (
	"testing"

	"github.com/san-kum/hydrostat/internal/constraint"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/physics"
	"github.com/san-kum/hydrostat/internal/topology"
)

func benchmarkOscillator(b *testing.B, integ dynamo.Integrator) {
	dyn := &oscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integ.Step(dyn, x, nil, 0, 0.01)
	}
}

func BenchmarkEuler(b *testing.B)  { benchmarkOscillator(b, NewEuler()) }
func BenchmarkRK4(b *testing.B)    { benchmarkOscillator(b, NewRK4()) }
func BenchmarkVerlet(b *testing.B) { benchmarkOscillator(b, NewVerlet()) }

func BenchmarkArmRK4(b *testing.B) {
	arm, err := topology.NewArm(topology.DefaultArmSpec(4))
	if err != nil {
		b.Fatal(err)
	}
	set := constraint.NewSet(
		constraint.NewConstantVolume(),
		constraint.NewPlanarFaces(),
		constraint.NewFixedVertex(topology.BaseRing()...),
	)
	dyn, err := physics.New(arm, set)
	if err != nil {
		b.Fatal(err)
	}
	integ := NewRK4()
	x := dyn.InitialState()
	u := make(dynamo.Control, dyn.ControlDim())
	for i := range u {
		u[i] = 0.1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := integ.Step(dyn, x, u, 0, 0.001)
		if err != nil {
			b.Fatal(err)
		}
		x = next
	}
}
