package metrics

import (
	"math"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/sim"
	"gonum.org/v1/gonum/floats"
)

type PeakInfected struct {
	name string
	peak float64
}

func NewPeakInfected() *PeakInfected { return &PeakInfected{name: "peak_infected"} }

func (p *PeakInfected) Name() string { return p.name }

func (p *PeakInfected) Observe(x dynamo.State, _ float64) {
	p.peak = math.Max(p.peak, x[dynamo.I])
}

func (p *PeakInfected) Value() float64 { return p.peak }
func (p *PeakInfected) Reset()         { p.peak = 0 }

// PeakStep reports the time at which I was largest. Ties keep the earliest.
type PeakStep struct {
	name  string
	peak  float64
	at    float64
	valid bool
}

func NewPeakStep() *PeakStep { return &PeakStep{name: "peak_time"} }

func (p *PeakStep) Name() string { return p.name }

func (p *PeakStep) Observe(x dynamo.State, t float64) {
	if !p.valid || x[dynamo.I] > p.peak {
		p.peak, p.at, p.valid = x[dynamo.I], t, true
	}
}

func (p *PeakStep) Value() float64 { return p.at }
func (p *PeakStep) Reset()         { p.peak, p.at, p.valid = 0, 0, false }

// AttackRate is the share of the initially susceptible who got infected.
type AttackRate struct {
	name  string
	s0    float64
	last  float64
	valid bool
}

func NewAttackRate() *AttackRate { return &AttackRate{name: "attack_rate"} }

func (a *AttackRate) Name() string { return a.name }

func (a *AttackRate) Observe(x dynamo.State, _ float64) {
	if !a.valid {
		a.s0, a.valid = x[dynamo.S], true
	}
	a.last = x[dynamo.S]
}

func (a *AttackRate) Value() float64 {
	if a.s0 == 0 {
		return 0
	}
	return (a.s0 - a.last) / a.s0
}

func (a *AttackRate) Reset() { a.s0, a.last, a.valid = 0, 0, false }

// Summary condenses a trajectory for reports.
type Summary struct {
	Steps         int     `json:"steps"`
	PeakInfected  float64 `json:"peak_infected"`
	PeakStep      int     `json:"peak_step"`
	FinalS        float64 `json:"final_susceptible"`
	FinalI        float64 `json:"final_infected"`
	FinalR        float64 `json:"final_recovered"`
	Immunized     float64 `json:"immunized"`
	AttackRate    float64 `json:"attack_rate"`
	TotalInfected float64 `json:"total_infected"`
}

// Summarize computes the headline numbers of a trajectory.
func Summarize(tr *sim.Trajectory) Summary {
	if tr.Len() == 0 {
		return Summary{}
	}
	inf := tr.Series(dynamo.I)
	idx := floats.MaxIdx(inf)
	first, last := tr.At(0), tr.At(tr.Len()-1)

	s := Summary{
		Steps:        tr.Len(),
		PeakInfected: inf[idx],
		PeakStep:     tr.At(idx).Step,
		FinalS:       last.S,
		FinalI:       last.I,
		FinalR:       last.R,
		Immunized:    first.R + first.V,
	}
	s.TotalInfected = first.S - last.S + first.I
	if first.S > 0 {
		s.AttackRate = (first.S - last.S) / first.S
	}
	return s
}
