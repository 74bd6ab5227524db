// Package dynamo provides the core primitives shared by every hydrostat
// package.
//
// The package defines the interfaces and types for stepping a constrained
// point-mass system forward in time:
//
//   - [State]: flattened [positions; velocities] vector
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Controller]: per-step actuation callback
//   - [Metric] and [Observer]: per-step hooks used by the simulator
//
// # Errors
//
// Failures are typed so callers can branch with errors.As:
//
//   - [ConfigurationError]: mismatched lengths or missing references, raised
//     before a run starts
//   - [ValidationError]: malformed topology or constraint definitions
//   - [NumericalError]: a step that cannot be solved (singular system)
//   - [SimulationError]: wraps any of the above with the failing step
//
// Each typed error unwraps to a sentinel ([ErrConfiguration],
// [ErrValidation], [ErrNumerical]) so errors.Is works as well.
package dynamo
