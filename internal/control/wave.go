package control

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/topology"
)

// Wave drives a contraction wave up the arm. Edge e receives
//
//	A · a_e · ½(1 + sin(2π(f·t − z_e/λ)))
//
// where z_e is the rest height of the edge midpoint and a_e the absolute
// z component of its rest direction, so ring edges stay slack.
type Wave struct {
	Amplitude  float64
	Frequency  float64
	Wavelength float64
	height     []float64
	axial      []float64
}

func NewWave(model *topology.Model, amplitude, frequency, wavelength float64) *Wave {
	w := &Wave{Amplitude: amplitude, Frequency: frequency, Wavelength: wavelength}
	for _, e := range model.Topology.Edges {
		a, b := model.Positions[e[0]], model.Positions[e[1]]
		w.height = append(w.height, 0.5*(a[2]+b[2]))
		w.axial = append(w.axial, axialWeight(a, b))
	}
	return w
}

func (w *Wave) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, len(w.height))
	for e, z := range w.height {
		phase := w.Frequency * t
		if w.Wavelength > 0 {
			phase -= z / w.Wavelength
		}
		u[e] = w.Amplitude * w.axial[e] * 0.5 * (1 + math.Sin(2*math.Pi*phase))
	}
	return u
}

func (w *Wave) GetParams() map[string]float64 {
	return map[string]float64{
		"amplitude":  w.Amplitude,
		"frequency":  w.Frequency,
		"wavelength": w.Wavelength,
	}
}

func (w *Wave) SetParam(name string, value float64) error {
	switch name {
	case "amplitude":
		w.Amplitude = value
	case "frequency":
		w.Frequency = value
	case "wavelength":
		w.Wavelength = value
	default:
		return unknownParam(name)
	}
	return nil
}

// Curl applies a constant tension to the axial edges lying entirely on one
// side of the arm, bending the arm toward that side.
type Curl struct {
	Amplitude float64
	active    []bool
}

func NewCurl(model *topology.Model, amplitude float64, side mgl64.Vec3) *Curl {
	var center mgl64.Vec3
	for _, p := range model.Positions {
		center = center.Add(p)
	}
	center = center.Mul(1 / float64(len(model.Positions)))
	side[2] = 0

	c := &Curl{Amplitude: amplitude, active: make([]bool, len(model.Topology.Edges))}
	for i, e := range model.Topology.Edges {
		a, b := model.Positions[e[0]], model.Positions[e[1]]
		onSide := a.Sub(center).Dot(side) > 0 && b.Sub(center).Dot(side) > 0
		c.active[i] = onSide && axialWeight(a, b) > 0.5
	}
	return c
}

// Active returns the indices of the driven edges.
func (c *Curl) Active() []int {
	var out []int
	for i, on := range c.active {
		if on {
			out = append(out, i)
		}
	}
	return out
}

func (c *Curl) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, len(c.active))
	for i, on := range c.active {
		if on {
			u[i] = c.Amplitude
		}
	}
	return u
}

func (c *Curl) GetParams() map[string]float64 {
	return map[string]float64{"amplitude": c.Amplitude}
}

func (c *Curl) SetParam(name string, value float64) error {
	if name != "amplitude" {
		return unknownParam(name)
	}
	c.Amplitude = value
	return nil
}

func axialWeight(a, b mgl64.Vec3) float64 {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 {
		return 0
	}
	return math.Abs(d[2]) / l
}
