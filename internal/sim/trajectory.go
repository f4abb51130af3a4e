package sim

import (
	"fmt"

	"github.com/san-kum/episim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Point is one row of a trajectory: compartment sizes at a step.
type Point struct {
	Step int     `json:"step"`
	S    float64 `json:"s"`
	I    float64 `json:"i"`
	R    float64 `json:"r"`
	V    float64 `json:"v"`
}

// Total returns S+I+R+V.
func (p Point) Total() float64 { return p.S + p.I + p.R + p.V }

// Get returns the compartment at a dynamo index.
func (p Point) Get(c int) float64 {
	switch c {
	case dynamo.S:
		return p.S
	case dynamo.I:
		return p.I
	case dynamo.R:
		return p.R
	case dynamo.V:
		return p.V
	}
	return 0
}

func pointFrom(step int, x dynamo.State) Point {
	p := Point{Step: step}
	vals := [dynamo.NumCompartments]float64{}
	copy(vals[:], x)
	p.S, p.I, p.R, p.V = vals[dynamo.S], vals[dynamo.I], vals[dynamo.R], vals[dynamo.V]
	return p
}

// Record is one (step, compartment, value) entry of the long table format.
type Record struct {
	Step        int     `json:"step"`
	Compartment string  `json:"compartment"`
	Value       float64 `json:"value"`
}

// Trajectory is an immutable sequence of points on a fixed time axis.
type Trajectory struct {
	dt     float64
	points []Point
}

// NewTrajectory copies points into a new trajectory.
func NewTrajectory(dt float64, points []Point) *Trajectory {
	cp := make([]Point, len(points))
	copy(cp, points)
	return &Trajectory{dt: dt, points: cp}
}

func (t *Trajectory) Len() int       { return len(t.points) }
func (t *Trajectory) Dt() float64    { return t.dt }
func (t *Trajectory) At(i int) Point { return t.points[i] }

// Points returns a copy of the rows.
func (t *Trajectory) Points() []Point {
	cp := make([]Point, len(t.points))
	copy(cp, t.points)
	return cp
}

// Times returns the simulated time of every step.
func (t *Trajectory) Times() []float64 {
	times := make([]float64, len(t.points))
	for i, p := range t.points {
		times[i] = float64(p.Step) * t.dt
	}
	return times
}

// Series returns one compartment column.
func (t *Trajectory) Series(c int) []float64 {
	col := make([]float64, len(t.points))
	for i, p := range t.points {
		col[i] = p.Get(c)
	}
	return col
}

// HasVaccinated reports whether any point carries a non-zero V.
func (t *Trajectory) HasVaccinated() bool {
	for _, p := range t.points {
		if p.V != 0 {
			return true
		}
	}
	return false
}

// Rows returns the (step, S, I, R) table, V folded into R.
func (t *Trajectory) Rows() [][4]float64 {
	out := make([][4]float64, len(t.points))
	for i, p := range t.points {
		out[i] = [4]float64{float64(p.Step), p.S, p.I, p.R + p.V}
	}
	return out
}

// Long flattens the trajectory to (step, compartment, value) records, the
// shape plotting front ends consume. V is included only when populated.
func (t *Trajectory) Long() []Record {
	comps := []int{dynamo.S, dynamo.I, dynamo.R}
	if t.HasVaccinated() {
		comps = append(comps, dynamo.V)
	}
	out := make([]Record, 0, len(t.points)*len(comps))
	for _, p := range t.points {
		for _, c := range comps {
			out = append(out, Record{Step: p.Step, Compartment: dynamo.CompartmentNames[c], Value: p.Get(c)})
		}
	}
	return out
}

// Aggregate sums trajectories point-wise. A single trajectory is returned as
// an equal copy. Every input must share the length and the step size.
func Aggregate(trajs ...*Trajectory) (*Trajectory, error) {
	if len(trajs) == 0 {
		return nil, fmt.Errorf("%w: nothing to aggregate", dynamo.ErrInvalidParameter)
	}

	first := trajs[0]
	n := first.Len()
	for i, tr := range trajs[1:] {
		if tr.Len() != n {
			return nil, fmt.Errorf("%w: trajectory %d has %d steps, trajectory 0 has %d",
				dynamo.ErrLengthMismatch, i+1, tr.Len(), n)
		}
		if tr.Dt() != first.Dt() {
			return nil, fmt.Errorf("%w: trajectory %d has dt=%g, trajectory 0 has dt=%g",
				dynamo.ErrInvalidParameter, i+1, tr.Dt(), first.Dt())
		}
	}

	var cols [dynamo.NumCompartments][]float64
	for c := range cols {
		cols[c] = make([]float64, n)
		for _, tr := range trajs {
			floats.Add(cols[c], tr.Series(c))
		}
	}

	points := make([]Point, n)
	for i := range points {
		points[i] = Point{
			Step: first.points[i].Step,
			S:    cols[dynamo.S][i],
			I:    cols[dynamo.I][i],
			R:    cols[dynamo.R][i],
			V:    cols[dynamo.V][i],
		}
	}
	return &Trajectory{dt: first.dt, points: points}, nil
}
