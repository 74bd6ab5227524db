package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/san-kum/hydrostat/internal/control"
	"github.com/san-kum/hydrostat/internal/dynamo"
)

type Simulator struct {
	dyn        dynamo.System
	integrator dynamo.Integrator
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	log        zerolog.Logger
}

type Option func(*Simulator)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

// New builds a simulator. A nil controller applies no actuation.
func New(dyn dynamo.System, integrator dynamo.Integrator, controller dynamo.Controller, opts ...Option) *Simulator {
	if controller == nil {
		controller = control.NewNone(dyn.ControlDim())
	}
	s := &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run advances x0 by cfg.Steps ticks of cfg.Dt. On a failed tick it returns
// the trajectory recorded so far together with a *dynamo.SimulationError.
// The context is checked between ticks.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	result := &dynamo.Result{
		States:   make([]dynamo.State, 0, cfg.Steps+1),
		Controls: make([]dynamo.Control, 0, cfg.Steps),
		Times:    make([]float64, 0, cfg.Steps+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	s.log.Info().Int("steps", cfg.Steps).Float64("dt", cfg.Dt).Msg("simulation started")

	x := x0.Clone()
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, 0)
	initialEnergy := s.computeEnergy(x)

	var runErr error
	for i := 0; i < cfg.Steps; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		t := float64(i) * cfg.Dt
		newX, u, err := s.tick(x, t, cfg)
		if err != nil {
			simErr := &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: err}
			result.Errors = append(result.Errors, simErr)
			s.log.Error().Err(err).Int("step", i).Float64("t", t).Msg("simulation step failed")
			runErr = simErr
			break
		}

		x = newX
		result.StepsTaken++
		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, float64(i+1)*cfg.Dt)
	}

	finalEnergy := s.computeEnergy(x)
	result.EnergyDrift = math.Abs(finalEnergy - initialEnergy)
	if initialEnergy != 0 {
		result.EnergyDrift /= math.Abs(initialEnergy)
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.log.Info().
		Int("steps_taken", result.StepsTaken).
		Float64("energy_drift", result.EnergyDrift).
		Msg("simulation finished")
	return result, runErr
}

func (s *Simulator) tick(x dynamo.State, t float64, cfg dynamo.Config) (dynamo.State, dynamo.Control, error) {
	u := s.controller.Compute(x, t)

	for _, m := range s.metrics {
		m.Observe(x, u, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, u, t)
	}

	newX, err := s.integrator.Step(s.dyn, x, u, t, cfg.Dt)
	if err != nil {
		return nil, nil, err
	}
	if cfg.ValidateState && !newX.IsValid() {
		return nil, nil, &dynamo.NumericalError{Op: "integrate", Reason: "state contains NaN or Inf"}
	}
	return newX, u, nil
}

// Step runs a single tick from x at time t: the controller, metrics and
// observers see x, then the integrator advances it by dt.
func (s *Simulator) Step(x dynamo.State, t, dt float64) (dynamo.State, dynamo.Control, error) {
	if len(x) != s.dyn.StateDim() {
		return nil, nil, &dynamo.ConfigurationError{Field: "state", Reason: fmt.Sprintf("length %d, want %d", len(x), s.dyn.StateDim())}
	}
	return s.tick(x, t, dynamo.Config{Dt: dt, ValidateState: true})
}

func (s *Simulator) Metrics() []dynamo.Metric { return s.metrics }
func (s *Simulator) System() dynamo.System    { return s.dyn }

func (s *Simulator) validate(x0 dynamo.State, cfg dynamo.Config) error {
	if !(cfg.Dt > 0) {
		return &dynamo.ConfigurationError{Field: "dt", Reason: fmt.Sprintf("must be positive, got %g", cfg.Dt)}
	}
	if cfg.Steps <= 0 {
		return &dynamo.ConfigurationError{Field: "steps", Reason: fmt.Sprintf("must be positive, got %d", cfg.Steps)}
	}
	if dim := s.dyn.StateDim(); len(x0) != dim {
		return &dynamo.ConfigurationError{Field: "state", Reason: fmt.Sprintf("length %d, want %d", len(x0), dim)}
	}
	return nil
}

func (s *Simulator) computeEnergy(x dynamo.State) float64 {
	if h, ok := s.dyn.(dynamo.Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}

// Simulate returns steps state rows, the first being x0, and steps-1
// control rows. Control i is computed from state i at time i·dt. On failure
// the rows produced so far are returned with a *dynamo.SimulationError.
func Simulate(dyn dynamo.System, integ dynamo.Integrator, x0 dynamo.State, ctrl dynamo.Controller, steps int, dt float64) ([]dynamo.State, []dynamo.Control, error) {
	if steps < 1 {
		return nil, nil, &dynamo.ConfigurationError{Field: "steps", Reason: fmt.Sprintf("need at least 1, got %d", steps)}
	}
	if steps == 1 {
		if len(x0) != dyn.StateDim() {
			return nil, nil, &dynamo.ConfigurationError{Field: "state", Reason: fmt.Sprintf("length %d, want %d", len(x0), dyn.StateDim())}
		}
		return []dynamo.State{x0.Clone()}, []dynamo.Control{}, nil
	}

	cfg := dynamo.Config{Dt: dt, Steps: steps - 1, ValidateState: true}
	res, err := New(dyn, integ, ctrl).Run(context.Background(), x0, cfg)
	if res == nil {
		return nil, nil, err
	}
	return res.States, res.Controls, err
}
