package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/san-kum/hydrostat/internal/config"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/physics"
	"github.com/san-kum/hydrostat/internal/sim"
	"github.com/san-kum/hydrostat/internal/solver"
	"github.com/san-kum/hydrostat/internal/storage"
	"github.com/san-kum/hydrostat/internal/topology"
)

// ModelName is the model every config builds.
const ModelName = "arm"

// Experiment is a fully wired run: arm model, constraint set, dynamics,
// integrator, controller and metrics, all built from one Config.
type Experiment struct {
	cfg        *config.Config
	dyn        *physics.Hydrostat
	integrator dynamo.Integrator
	controller dynamo.Controller
	metrics    []dynamo.Metric
	simulator  *sim.Simulator
	x0         dynamo.State
	log        zerolog.Logger
}

// New validates cfg and builds every component it names using the default
// registry.
func New(cfg *config.Config, log zerolog.Logger) (*Experiment, error) {
	return NewRegistry().Build(cfg, log)
}

func (r *Registry) Build(cfg *config.Config, log zerolog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model, err := r.GetModel(ModelName, cfg)
	if err != nil {
		return nil, err
	}
	set, err := r.GetConstraints(cfg)
	if err != nil {
		return nil, err
	}
	dyn, err := physics.New(model, set,
		physics.WithSolver(&solver.Solver{
			DampingRate:    cfg.DampingRate,
			SpringRate:     cfg.SpringRate,
			Regularization: cfg.Regularization,
		}),
		physics.WithGravity(mgl64.Vec3(cfg.Gravity)),
		physics.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("build dynamics: %w", err)
	}
	integ, err := r.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := r.GetController(cfg.Controller, model, cfg.ControllerParams)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:        cfg.Clone(),
		dyn:        dyn,
		integrator: integ,
		controller: ctrl,
		metrics:    r.DefaultMetrics(dyn),
		log:        log,
	}
	e.x0 = e.perturbed(dyn.InitialState())
	e.simulator = sim.New(dyn, integ, ctrl, sim.WithLogger(log))
	for _, m := range e.metrics {
		e.simulator.AddMetric(m)
	}
	return e, nil
}

// perturbed adds seeded Gaussian noise of scale Perturbation to the
// velocities of every vertex that is not pinned.
func (e *Experiment) perturbed(x dynamo.State) dynamo.State {
	if e.cfg.Perturbation == 0 {
		return x
	}
	pinned := make(map[int]bool)
	if e.cfg.HasConstraint("fixed_vertex") {
		for _, v := range e.cfg.FixedVertices {
			pinned[v] = true
		}
	}

	rng := rand.New(rand.NewSource(e.cfg.Seed))
	n := e.dyn.Model().NumVertices()
	out := x.Clone()
	for v := 0; v < n; v++ {
		if pinned[v] {
			continue
		}
		for axis := 0; axis < 3; axis++ {
			out[3*n+3*v+axis] += e.cfg.Perturbation * rng.NormFloat64()
		}
	}
	return out
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	return e.simulator.Run(ctx, e.x0.Clone(), e.SimConfig())
}

func (e *Experiment) SimConfig() dynamo.Config {
	return dynamo.Config{
		Dt:            e.cfg.Dt,
		Steps:         e.cfg.Steps,
		Seed:          e.cfg.Seed,
		ValidateState: true,
	}
}

// Metadata describes the experiment for the run store.
func (e *Experiment) Metadata(preset string) storage.RunMetadata {
	return storage.RunMetadata{
		Model:       ModelName,
		Preset:      preset,
		Seed:        e.cfg.Seed,
		Dt:          e.cfg.Dt,
		Steps:       e.cfg.Steps,
		Cells:       e.cfg.Cells,
		Vertices:    e.dyn.Model().NumVertices(),
		Integrator:  e.cfg.Integrator,
		Controller:  e.cfg.Controller,
		Constraints: append([]string(nil), e.cfg.Constraints...),
	}
}

func (e *Experiment) Config() *config.Config        { return e.cfg }
func (e *Experiment) Dynamics() *physics.Hydrostat  { return e.dyn }
func (e *Experiment) Model() *topology.Model        { return e.dyn.Model() }
func (e *Experiment) Integrator() dynamo.Integrator { return e.integrator }
func (e *Experiment) Controller() dynamo.Controller { return e.controller }
func (e *Experiment) Metrics() []dynamo.Metric      { return e.metrics }
func (e *Experiment) Simulator() *sim.Simulator     { return e.simulator }
func (e *Experiment) InitialState() dynamo.State    { return e.x0.Clone() }
