// Package dynamo provides the core primitives for compartmental epidemic
// simulation.
//
// The package defines the types shared by every layer of the engine:
//
//   - [State]: compartment vector in the fixed [S, I, R, V] layout
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - the typed errors every layer returns
//
// # Example
//
//	dyn := models.NewSIR(0.5, 0.1, 1000)
//	integ := integrators.NewRK4()
//	next := integ.Step(dyn, x, 0, 1)
//
// # Thread Safety
//
// Integrators may hold scratch buffers and are NOT safe for concurrent use.
// Create one integrator per run; systems are read-only during a run.
package dynamo
