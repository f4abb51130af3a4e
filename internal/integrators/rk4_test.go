package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/episim/internal/dynamo"
)

type oscillator struct{}

func (o *oscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (o *oscillator) StateDim() int { return 2 }

type decay struct{ rate float64 }

func (d *decay) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{-d.rate * x[0]}
}

func (d *decay) StateDim() int { return 1 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &oscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestEulerSingleStep(t *testing.T) {
	x := NewEuler().Step(&decay{rate: 0.5}, dynamo.State{10}, 0, 1)
	if x[0] != 5 {
		t.Errorf("expected 5 after one Euler step, got %f", x[0])
	}
}

func TestRK4MatchesExponentialDecay(t *testing.T) {
	dyn := &decay{rate: 0.5}
	integ := NewRK4()

	x := dynamo.State{1}
	for i := 0; i < 10; i++ {
		x = integ.Step(dyn, x, float64(i), 1)
	}

	// one RK4 step of size 1 multiplies by 1 - z + z^2/2 - z^3/6 + z^4/24
	z := 0.5
	factor := 1 - z + z*z/2 - z*z*z/6 + z*z*z*z/24
	if math.Abs(x[0]-math.Pow(factor, 10)) > 1e-12 {
		t.Errorf("got %.12f, want %.12f", x[0], math.Pow(factor, 10))
	}
	if math.Abs(x[0]-math.Exp(-5)) > 1e-3 {
		t.Errorf("RK4 drifted from exp(-5): %.6f", x[0])
	}
}

func TestStepDoesNotMutateInput(t *testing.T) {
	for _, name := range Names() {
		fn, err := Lookup(name)
		if err != nil {
			t.Fatal(err)
		}
		x := dynamo.State{1, 0}
		fn().Step(&oscillator{}, x, 0, 0.1)
		if x[0] != 1 || x[1] != 0 {
			t.Errorf("%s mutated its input: %v", name, x)
		}
	}
}

func TestLookup(t *testing.T) {
	if _, err := Lookup("rk4"); err != nil {
		t.Errorf("rk4 not registered: %v", err)
	}
	if _, err := Lookup("leapfrog"); err == nil {
		t.Error("expected error for unknown integrator")
	}
	names := Names()
	if len(names) != 2 || names[0] != "euler" || names[1] != "rk4" {
		t.Errorf("unexpected names %v", names)
	}
}
