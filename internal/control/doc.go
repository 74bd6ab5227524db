// Package control provides actuation controllers for hydrostat models.
//
// Controllers implement [dynamo.Controller] and return one contraction
// tension per edge:
//
//   - [None]: zero control
//   - [Constant]: the same tension on every edge
//   - [Wave]: a contraction wave travelling along the arm axis
//   - [Curl]: constant tension on the axial edges of one side
//   - [EdgePID]: per-edge length regulation
//   - [Manual]: a control vector set from outside, such as the live view
//
// Controllers implementing [dynamo.Configurable] support live tuning.
package control
