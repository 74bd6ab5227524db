// Package sim drives a [dynamo.System] through time.
//
// [Simulator] runs one tick at a time: compute the control from the current
// state, feed metrics and observers, integrate, and validate the result.
// [Simulate] is the plain trajectory form used by tests and batch tools.
package sim
