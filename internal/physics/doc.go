// Package physics turns a topology model and a constraint set into a
// [dynamo.System].
//
// [Hydrostat] evaluates explicit forces (gravity, external loads, edge
// actuation, vertex and edge damping), asks the reaction solver for the
// forces that keep the constraints satisfied, and returns the state
// derivative. It also implements [dynamo.Hamiltonian],
// [dynamo.ConstraintMonitor] and [dynamo.Configurable]:
//
//	arm, _ := topology.NewArm(topology.DefaultArmSpec(4))
//	set := constraint.NewSet(
//	    constraint.NewConstantVolume(),
//	    constraint.NewPlanarFaces(),
//	    constraint.NewFixedVertex(topology.BaseRing()...),
//	)
//	dyn, err := physics.New(arm, set, physics.WithGravity(mgl64.Vec3{0, 0, -9.81}))
package physics
