package integrators

import (
	"github.com/san-kum/episim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// RK4 is the classical fourth-order Runge-Kutta method. It reuses its stage
// buffers between steps, so one instance must not be shared across goroutines.
type RK4 struct {
	k     [4]dynamo.State
	stage dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.stage) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	r.resize(len(x))
	half := dt / 2

	copy(r.k[0], dyn.Derive(x, t))
	floats.AddScaledTo(r.stage, x, half, r.k[0])
	copy(r.k[1], dyn.Derive(r.stage, t+half))
	floats.AddScaledTo(r.stage, x, half, r.k[1])
	copy(r.k[2], dyn.Derive(r.stage, t+half))
	floats.AddScaledTo(r.stage, x, dt, r.k[2])
	copy(r.k[3], dyn.Derive(r.stage, t+dt))

	next := x.Clone()
	for i, w := range [4]float64{dt / 6, dt / 3, dt / 3, dt / 6} {
		floats.AddScaled(next, w, r.k[i])
	}
	return next
}
