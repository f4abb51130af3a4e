package metrics

import (
	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/sim"
)

// Metric accumulates a scalar over the states of a run.
type Metric interface {
	Name() string
	Observe(x dynamo.State, t float64)
	Value() float64
	Reset()
}

// Default returns a fresh set of the metrics reported for every run.
func Default() []Metric {
	return []Metric{
		NewPeakInfected(),
		NewPeakStep(),
		NewAttackRate(),
		NewMassDrift(),
	}
}

// Observer adapts metrics to a simulator observer.
type Observer struct{ Metrics []Metric }

func (o Observer) OnStep(_ int, x dynamo.State, t float64) {
	for _, m := range o.Metrics {
		m.Observe(x, t)
	}
}

// Collect replays a trajectory through the metrics and returns their values.
func Collect(tr *sim.Trajectory, ms ...Metric) map[string]float64 {
	for _, m := range ms {
		m.Reset()
	}
	times := tr.Times()
	for i, p := range tr.Points() {
		x := dynamo.State{p.S, p.I, p.R, p.V}
		for _, m := range ms {
			m.Observe(x, times[i])
		}
	}
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
