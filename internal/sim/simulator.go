package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/episim/internal/dynamo"
)

type Simulator struct {
	dyn        dynamo.System
	integrator dynamo.Integrator
	observers  []Observer
}

func New(dyn dynamo.System, integrator dynamo.Integrator) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run integrates cfg.Steps states starting from x0 (which is step 0). After
// every step the state is re-scaled so its sum equals the conserved total.
// A compartment leaving [0, N] by more than the tolerance aborts the run with
// ErrNumericalInstability.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*Trajectory, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("%w: state has %d compartments, system expects %d",
			dynamo.ErrInvalidParameter, len(x0), s.dyn.StateDim())
	}

	total, err := s.total(x0, cfg.Tolerance)
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, cfg.Steps)
	x := x0.Clone()
	t := 0.0

	points = append(points, pointFrom(0, x))
	s.notify(0, x, t)

	for i := 1; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		next := s.integrator.Step(s.dyn, x, t, cfg.Dt)
		t += cfg.Dt

		if err := checkBounds(next, total, cfg.Tolerance); err != nil {
			return nil, &dynamo.SimulationError{Step: i, Time: t, State: next, Wrapped: err}
		}

		if sum := next.Sum(); sum != total && sum > 0 {
			next = next.Scale(total / sum)
		}

		x = next
		points = append(points, pointFrom(i, x))
		s.notify(i, x, t)
	}

	return &Trajectory{dt: cfg.Dt, points: points}, nil
}

func (s *Simulator) notify(step int, x dynamo.State, t float64) {
	for _, obs := range s.observers {
		obs.OnStep(step, x, t)
	}
}

// total returns the conserved population and checks x0 against it.
func (s *Simulator) total(x0 dynamo.State, tol float64) (float64, error) {
	for i, v := range x0 {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, dynamo.InvalidParameter("x0["+dynamo.CompartmentName(i)+"]", v, "finite and >= 0")
		}
	}

	sum := x0.Sum()
	c, ok := s.dyn.(dynamo.Conserved)
	if !ok {
		if sum <= 0 {
			return 0, dynamo.InvalidParameter("population", sum, "> 0")
		}
		return sum, nil
	}

	n := c.Total()
	if math.Abs(sum-n) > tol*n {
		return 0, fmt.Errorf("%w: initial compartments sum to %g, population is %g",
			dynamo.ErrInvalidParameter, sum, n)
	}
	return n, nil
}

func checkBounds(x dynamo.State, total, tol float64) error {
	if !x.IsValid() {
		return fmt.Errorf("%w: NaN or Inf", dynamo.ErrNumericalInstability)
	}
	slack := tol * total
	for i, v := range x {
		if v < -slack || v > total+slack {
			return fmt.Errorf("%w: %s=%g outside [0, %g]",
				dynamo.ErrNumericalInstability, dynamo.CompartmentName(i), v, total)
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) {
		return dynamo.InvalidParameter("dt", cfg.Dt, "> 0")
	}
	if cfg.Steps < 1 || cfg.Steps > MaxSteps {
		return fmt.Errorf("%w: steps=%d, want 1..%d", dynamo.ErrInvalidParameter, cfg.Steps, MaxSteps)
	}
	if !(cfg.Tolerance > 0) {
		return dynamo.InvalidParameter("tolerance", cfg.Tolerance, "> 0")
	}
	return nil
}
