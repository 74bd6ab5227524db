package experiment

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hydrostat/internal/config"
	"github.com/san-kum/hydrostat/internal/constraint"
	"github.com/san-kum/hydrostat/internal/control"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/integrators"
	"github.com/san-kum/hydrostat/internal/metrics"
	"github.com/san-kum/hydrostat/internal/physics"
	"github.com/san-kum/hydrostat/internal/topology"
)

type (
	ModelFactory      func(cfg *config.Config) (*topology.Model, error)
	ConstraintFactory func(cfg *config.Config) constraint.Constraint
	ControllerFactory func(model *topology.Model, p config.ControllerConfig) (dynamo.Controller, error)
)

// Registry maps the names used in config files to constructors.
type Registry struct {
	models      map[string]ModelFactory
	constraints map[string]ConstraintFactory
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]ModelFactory),
		constraints: make(map[string]ConstraintFactory),
		controllers: make(map[string]ControllerFactory),
	}

	r.models["arm"] = func(cfg *config.Config) (*topology.Model, error) {
		return topology.NewArm(topology.ArmSpec{
			Cells:         cfg.Cells,
			Width:         cfg.CellSize.Width,
			Length:        cfg.CellSize.Length,
			Height:        cfg.CellSize.Height,
			VertexMass:    cfg.VertexMass,
			VertexDamping: cfg.VertexDamping,
			EdgeDamping:   cfg.EdgeDamping,
		})
	}

	r.constraints["constant_volume"] = func(*config.Config) constraint.Constraint {
		return constraint.NewConstantVolume()
	}
	r.constraints["edge_length"] = func(cfg *config.Config) constraint.Constraint {
		return constraint.NewEdgeLengthBound(cfg.EdgeBounds.Min, cfg.UpperBound())
	}
	r.constraints["fixed_vertex"] = func(cfg *config.Config) constraint.Constraint {
		return constraint.NewFixedVertex(cfg.FixedVertices...)
	}
	r.constraints["planar_faces"] = func(*config.Config) constraint.Constraint {
		return constraint.NewPlanarFaces()
	}

	r.controllers["none"] = func(m *topology.Model, _ config.ControllerConfig) (dynamo.Controller, error) {
		return control.NewNone(len(m.Topology.Edges)), nil
	}
	r.controllers["constant"] = func(m *topology.Model, p config.ControllerConfig) (dynamo.Controller, error) {
		return control.NewConstant(len(m.Topology.Edges), p.Amplitude), nil
	}
	r.controllers["wave"] = func(m *topology.Model, p config.ControllerConfig) (dynamo.Controller, error) {
		return control.NewWave(m, p.Amplitude, p.Frequency, p.Wavelength), nil
	}
	r.controllers["curl"] = func(m *topology.Model, p config.ControllerConfig) (dynamo.Controller, error) {
		side, err := ParseSide(p.Side)
		if err != nil {
			return nil, err
		}
		return control.NewCurl(m, p.Amplitude, side), nil
	}
	r.controllers["manual"] = func(m *topology.Model, _ config.ControllerConfig) (dynamo.Controller, error) {
		return control.NewManual(len(m.Topology.Edges)), nil
	}
	r.controllers["pid"] = func(m *topology.Model, p config.ControllerConfig) (dynamo.Controller, error) {
		return control.NewEdgePID(m, p.Kp, p.Ki, p.Kd, p.Target), nil
	}

	return r
}

func (r *Registry) RegisterModel(name string, f ModelFactory)           { r.models[name] = f }
func (r *Registry) RegisterConstraint(name string, f ConstraintFactory) { r.constraints[name] = f }
func (r *Registry) RegisterController(name string, f ControllerFactory) { r.controllers[name] = f }

func (r *Registry) GetModel(name string, cfg *config.Config) (*topology.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, &dynamo.ConfigurationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", name)}
	}
	return fn(cfg)
}

// GetConstraints builds a Set holding the constraints named in cfg.
func (r *Registry) GetConstraints(cfg *config.Config) (*constraint.Set, error) {
	set := constraint.NewSet()
	for i, name := range cfg.Constraints {
		fn, ok := r.constraints[name]
		if !ok {
			return nil, &dynamo.ConfigurationError{
				Field:  fmt.Sprintf("constraints[%d]", i),
				Reason: fmt.Sprintf("unknown constraint %q", name),
			}
		}
		set.Add(fn(cfg))
	}
	return set, nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	return integrators.New(integrators.Method(name))
}

func (r *Registry) GetController(name string, model *topology.Model, p config.ControllerConfig) (dynamo.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, &dynamo.ConfigurationError{Field: "controller", Reason: fmt.Sprintf("unknown controller %q", name)}
	}
	return fn(model, p)
}

func (r *Registry) ListModels() []string      { return sortedKeys(r.models) }
func (r *Registry) ListConstraints() []string { return sortedKeys(r.constraints) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }
func (r *Registry) ListIntegrators() []string { return integrators.Methods() }

// StabilityRatio is how far an edge may shrink or stretch, relative to its
// rest length, before a state counts as unstable.
const StabilityRatio = 4.0

// DefaultMetrics returns the metrics recorded for every run of h.
func (r *Registry) DefaultMetrics(h *physics.Hydrostat) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewKineticEnergy(h.Model().Masses),
		metrics.NewEnergyDrift(h),
		metrics.NewConstraintDrift(h),
		metrics.NewStability(h.Model().Topology.Edges, h.Model().Positions, StabilityRatio),
		metrics.NewActuatorWork(h.Model().Topology.Edges, h.Model().NumVertices()),
	}
}

// ParseSide maps "+x", "-x", "+y" or "-y" to a unit direction.
func ParseSide(s string) (mgl64.Vec3, error) {
	switch s {
	case "+x", "x", "":
		return mgl64.Vec3{1, 0, 0}, nil
	case "-x":
		return mgl64.Vec3{-1, 0, 0}, nil
	case "+y", "y":
		return mgl64.Vec3{0, 1, 0}, nil
	case "-y":
		return mgl64.Vec3{0, -1, 0}, nil
	}
	return mgl64.Vec3{}, &dynamo.ConfigurationError{Field: "controller_params.side", Reason: fmt.Sprintf("unknown side %q", s)}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
