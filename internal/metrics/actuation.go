package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
)

// ActuatorWork integrates the power delivered by the edge actuators,
// Σ_e |u_e · L̇_e|, where L̇_e is the rate at which edge e changes length.
// Each sample's power is held until the next observation.
type ActuatorWork struct {
	name      string
	edges     [][2]int
	n         int
	work      float64
	peak      float64
	lastPower float64
	lastT     float64
	samples   int
}

func NewActuatorWork(edges [][2]int, numVertices int) *ActuatorWork {
	return &ActuatorWork{
		name:  "actuator_work",
		edges: edges,
		n:     numVertices,
	}
}

func (a *ActuatorWork) Name() string { return a.name }

func (a *ActuatorWork) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) != 6*a.n || len(u) != len(a.edges) {
		return
	}

	power := 0.0
	for e, edge := range a.edges {
		a.peak = math.Max(a.peak, math.Abs(u[e]))
		if u[e] == 0 {
			continue
		}
		d := vertexVec(x, edge[0]).Sub(vertexVec(x, edge[1]))
		l := d.Len()
		if l == 0 {
			continue
		}
		rel := vertexVec(x, a.n+edge[0]).Sub(vertexVec(x, a.n+edge[1]))
		power += math.Abs(u[e] * d.Dot(rel) / l)
	}

	if a.samples > 0 {
		a.work += a.lastPower * (t - a.lastT)
	}
	a.lastPower, a.lastT = power, t
	a.samples++
}

func (a *ActuatorWork) Value() float64 { return a.work }

// PeakTension is the largest single-edge tension magnitude observed.
func (a *ActuatorWork) PeakTension() float64 { return a.peak }

func (a *ActuatorWork) Reset() {
	a.work = 0
	a.peak = 0
	a.lastPower = 0
	a.lastT = 0
	a.samples = 0
}

// vertexVec reads the i-th consecutive 3-vector of x. Velocities of an
// n-vertex state start at block n.
func vertexVec(x dynamo.State, i int) mgl64.Vec3 {
	return mgl64.Vec3{x[3*i], x[3*i+1], x[3*i+2]}
}
