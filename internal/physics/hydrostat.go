package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/san-kum/hydrostat/internal/constraint"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/solver"
	"github.com/san-kum/hydrostat/internal/topology"
)

// Hydrostat is a constrained particle system. Vertices carry mass, edges
// carry damping and actuation, and a constraint set is enforced through
// reaction forces computed at every evaluation.
//
// State: [p0 … pn-1, v0 … vn-1] flattened per axis.
// Control: one contraction tension per edge.
type Hydrostat struct {
	model    *topology.Model
	set      *constraint.Set
	solver   *solver.Solver
	gravity  mgl64.Vec3
	external []mgl64.Vec3
	invMass  []float64
	log      zerolog.Logger
}

type Option func(*Hydrostat)

func WithSolver(s *solver.Solver) Option {
	return func(h *Hydrostat) { h.solver = s }
}

func WithGravity(g mgl64.Vec3) Option {
	return func(h *Hydrostat) { h.gravity = g }
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Hydrostat) { h.log = l }
}

// New validates the model and initializes the constraint set against the
// model's current positions. A nil set means no constraints.
func New(model *topology.Model, set *constraint.Set, opts ...Option) (*Hydrostat, error) {
	if model == nil {
		return nil, &dynamo.ConfigurationError{Field: "model", Reason: "missing"}
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if set == nil {
		set = constraint.NewSet()
	}

	h := &Hydrostat{
		model:   model,
		set:     set,
		solver:  solver.New(),
		invMass: model.InverseMasses(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.solver.Validate(); err != nil {
		return nil, err
	}
	if err := set.Initialize(&model.Topology, model.Positions); err != nil {
		return nil, err
	}

	h.log.Debug().
		Int("vertices", model.NumVertices()).
		Int("edges", len(model.Topology.Edges)).
		Int("constraints", set.Len()).
		Msg("hydrostat initialized")
	return h, nil
}

func (h *Hydrostat) StateDim() int   { return 6 * h.model.NumVertices() }
func (h *Hydrostat) ControlDim() int { return len(h.model.Topology.Edges) }

func (h *Hydrostat) Model() *topology.Model       { return h.model }
func (h *Hydrostat) Constraints() *constraint.Set { return h.set }
func (h *Hydrostat) Solver() *solver.Solver       { return h.solver }
func (h *Hydrostat) Gravity() mgl64.Vec3          { return h.gravity }
func (h *Hydrostat) InitialState() dynamo.State   { return h.model.State() }
func (h *Hydrostat) Unpack(x dynamo.State) ([]mgl64.Vec3, []mgl64.Vec3, error) {
	return topology.Unpack(x, h.model.NumVertices())
}

// SetExternalForces sets a constant per-vertex force. Nil clears it.
func (h *Hydrostat) SetExternalForces(forces []mgl64.Vec3) error {
	if forces != nil && len(forces) != h.model.NumVertices() {
		return &dynamo.ConfigurationError{
			Field:  "external forces",
			Reason: fmt.Sprintf("length %d, want %d", len(forces), h.model.NumVertices()),
		}
	}
	h.external = append([]mgl64.Vec3(nil), forces...)
	return nil
}

func (h *Hydrostat) Derive(x dynamo.State, u dynamo.Control, _ float64) (dynamo.State, error) {
	pos, vel, err := h.Unpack(x)
	if err != nil {
		return nil, err
	}
	explicit, err := h.ExplicitForces(pos, vel, u)
	if err != nil {
		return nil, err
	}
	reaction, err := h.ReactionForces(pos, vel, explicit)
	if err != nil {
		return nil, err
	}

	n := h.model.NumVertices()
	deriv := make(dynamo.State, 6*n)
	for i := 0; i < n; i++ {
		acc := explicit[i].Add(reaction[i]).Mul(1 / h.model.Masses[i])
		copy(deriv[3*i:3*i+3], vel[i][:])
		copy(deriv[3*n+3*i:3*n+3*i+3], acc[:])
	}
	return deriv, nil
}

// ExplicitForces sums every non-constraint force on each vertex: external
// and gravity, edge actuation, minus vertex and edge damping.
func (h *Hydrostat) ExplicitForces(pos, vel []mgl64.Vec3, u dynamo.Control) ([]mgl64.Vec3, error) {
	edges := h.model.Topology.Edges
	if len(u) != 0 && len(u) != len(edges) {
		return nil, &dynamo.ConfigurationError{Field: "control", Reason: fmt.Sprintf("length %d, want %d", len(u), len(edges))}
	}

	forces := make([]mgl64.Vec3, len(pos))
	for i := range forces {
		f := h.gravity.Mul(h.model.Masses[i])
		if h.external != nil {
			f = f.Add(h.external[i])
		}
		if h.model.VertexDamping != nil {
			f = f.Sub(vel[i].Mul(h.model.VertexDamping[i]))
		}
		forces[i] = f
	}

	for e, edge := range edges {
		a, b := edge[0], edge[1]
		d := pos[a].Sub(pos[b])
		l := d.Len()
		if l == 0 {
			continue
		}
		dir := d.Mul(1 / l)

		var f mgl64.Vec3
		if len(u) != 0 {
			f = dir.Mul(-u[e])
		}
		if h.model.EdgeDamping != nil {
			rel := vel[a].Sub(vel[b])
			f = f.Sub(dir.Mul(h.model.EdgeDamping[e] * dir.Dot(rel)))
		}
		forces[a] = forces[a].Add(f)
		forces[b] = forces[b].Sub(f)
	}
	return forces, nil
}

// ReactionForces returns the per-vertex constraint forces for the given
// configuration and explicit forces.
func (h *Hydrostat) ReactionForces(pos, vel, explicit []mgl64.Vec3) ([]mgl64.Vec3, error) {
	n := h.model.NumVertices()
	if len(explicit) != n {
		return nil, &dynamo.ConfigurationError{Field: "forces", Reason: fmt.Sprintf("length %d, want %d", len(explicit), n)}
	}
	sys, err := h.set.Assemble(pos, vel)
	if err != nil {
		return nil, err
	}
	flat, err := h.solver.ReactionForces(sys, h.invMass, flatten(vel), flatten(explicit))
	if err != nil {
		return nil, err
	}
	out := make([]mgl64.Vec3, n)
	for i := range out {
		out[i] = mgl64.Vec3{flat[3*i], flat[3*i+1], flat[3*i+2]}
	}
	return out, nil
}

// Energy is kinetic energy plus gravitational potential.
func (h *Hydrostat) Energy(x dynamo.State) float64 {
	pos, vel, err := h.Unpack(x)
	if err != nil {
		return math.NaN()
	}
	e := 0.0
	for i, m := range h.model.Masses {
		e += 0.5*m*vel[i].Dot(vel[i]) - m*h.gravity.Dot(pos[i])
	}
	return e
}

func (h *Hydrostat) Violation(x dynamo.State) (float64, error) {
	pos, vel, err := h.Unpack(x)
	if err != nil {
		return 0, err
	}
	return h.set.Violation(pos, vel)
}

func (h *Hydrostat) GetParams() map[string]float64 {
	return map[string]float64{
		"damping_rate":   h.solver.DampingRate,
		"spring_rate":    h.solver.SpringRate,
		"regularization": h.solver.Regularization,
		"gravity":        h.gravity[2],
	}
}

func (h *Hydrostat) SetParam(name string, value float64) error {
	switch name {
	case "damping_rate":
		h.solver.DampingRate = value
	case "spring_rate":
		h.solver.SpringRate = value
	case "regularization":
		if value < 0 {
			return &dynamo.ConfigurationError{Field: name, Reason: fmt.Sprintf("%g is negative", value)}
		}
		h.solver.Regularization = value
	case "gravity":
		h.gravity[2] = value
	default:
		return &dynamo.ConfigurationError{Field: name, Reason: "unknown parameter"}
	}
	return nil
}

func flatten(vs []mgl64.Vec3) []float64 {
	out := make([]float64, 3*len(vs))
	for i, v := range vs {
		copy(out[3*i:3*i+3], v[:])
	}
	return out
}
