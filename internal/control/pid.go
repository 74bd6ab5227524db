package control

import (
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/topology"
)

// EdgePID regulates every edge length toward Target times its rest length.
// A positive error (edge too long) yields positive contraction.
type EdgePID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64

	n        int
	edges    [][2]int
	rest     []float64
	integral []float64
	prevErr  []float64
	prevT    float64
	first    bool
}

func NewEdgePID(model *topology.Model, kp, ki, kd, target float64) *EdgePID {
	p := &EdgePID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		n:      model.NumVertices(),
		edges:  model.Topology.Edges,
		first:  true,
	}
	p.rest = make([]float64, len(p.edges))
	for i, e := range p.edges {
		p.rest[i] = model.Positions[e[0]].Sub(model.Positions[e[1]]).Len()
	}
	p.integral = make([]float64, len(p.edges))
	p.prevErr = make([]float64, len(p.edges))
	return p
}

func (p *EdgePID) lengthErrors(x dynamo.State) ([]float64, bool) {
	pos, _, err := topology.Unpack(x, p.n)
	if err != nil {
		return nil, false
	}
	out := make([]float64, len(p.edges))
	for i, e := range p.edges {
		out[i] = pos[e[0]].Sub(pos[e[1]]).Len() - p.Target*p.rest[i]
	}
	return out, true
}

func (p *EdgePID) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, len(p.edges))
	errs, ok := p.lengthErrors(x)
	if !ok {
		return u
	}

	if p.first {
		copy(p.prevErr, errs)
		p.prevT = t
		p.first = false
		for i, e := range errs {
			u[i] = p.Kp * e
		}
		return u
	}

	dt := t - p.prevT
	for i, e := range errs {
		if dt > 0 {
			p.integral[i] += e * dt
			u[i] = p.Kp*e + p.Ki*p.integral[i] + p.Kd*(e-p.prevErr[i])/dt
		} else {
			u[i] = p.Kp * e
		}
	}
	if dt > 0 {
		copy(p.prevErr, errs)
		p.prevT = t
	}
	return u
}

// Reset clears integral and derivative state
func (p *EdgePID) Reset() {
	for i := range p.integral {
		p.integral[i] = 0
		p.prevErr[i] = 0
	}
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *EdgePID) GetParams() map[string]float64 {
	return map[string]float64{
		"kp":     p.Kp,
		"ki":     p.Ki,
		"kd":     p.Kd,
		"target": p.Target,
	}
}

// SetParam adjusts a PID parameter
func (p *EdgePID) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "target":
		p.Target = value
	default:
		return unknownParam(name)
	}
	return nil
}
