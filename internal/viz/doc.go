// Package viz draws a running arm in the terminal.
//
// [Model] is a Bubble Tea model that advances a [sim.Simulator] a few
// ticks per frame and renders:
//
//   - the arm's edges projected by a rotatable [Camera] onto a braille
//     [Canvas]
//   - kinetic energy and constraint drift histories via asciigraph
//   - per-edge actuation as a sparkline
//   - the solver parameters, which can be tuned while running
//
// # Key Bindings
//
//	Space    - Pause/Resume
//	.        - Single step while paused
//	R        - Reset to the initial state
//	Tab      - Select solver parameter
//	Up/Down  - Scale the selected parameter by 10%
//	H/L, W/S - Rotate the camera
//	+/-      - Zoom
//	1-4      - Contract one side (manual controller)
//	0        - Release all edges
//	?        - Toggle help
package viz
