package metrics

import (
	"math"

	"github.com/san-kum/hydrostat/internal/dynamo"
)

// KineticEnergy averages ½Σm|v|² over the observed states. States are laid
// out as [positions; velocities] with three coordinates per vertex.
type KineticEnergy struct {
	name    string
	masses  []float64
	samples int
	total   float64
	last    float64
}

func NewKineticEnergy(masses []float64) *KineticEnergy {
	return &KineticEnergy{
		name:   "kinetic_energy",
		masses: masses,
	}
}

func (k *KineticEnergy) Name() string { return k.name }

// Of returns the kinetic energy of a single state.
func (k *KineticEnergy) Of(x dynamo.State) float64 {
	n := len(k.masses)
	if len(x) != 6*n {
		return math.NaN()
	}
	e := 0.0
	for i, m := range k.masses {
		v := x[3*n+3*i : 3*n+3*i+3]
		e += 0.5 * m * (v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	}
	return e
}

func (k *KineticEnergy) Observe(x dynamo.State, u dynamo.Control, t float64) {
	e := k.Of(x)
	if math.IsNaN(e) {
		return
	}
	k.last = e
	k.total += e
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

// Last returns the most recent observation.
func (k *KineticEnergy) Last() float64 { return k.last }

func (k *KineticEnergy) Reset() {
	k.total = 0
	k.last = 0
	k.samples = 0
}

// EnergyDrift is the largest change of total energy relative to its first
// observed value. A run that starts at zero energy reports the absolute
// change instead.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
	dyn           dynamo.System
}

func NewEnergyDrift(dyn dynamo.System) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		dyn:  dyn,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	ec, ok := e.dyn.(dynamo.Hamiltonian)
	if !ok {
		return
	}

	energy := ec.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	drift := math.Abs(energy - e.initialEnergy)
	if e.initialEnergy != 0 {
		drift /= math.Abs(e.initialEnergy)
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
