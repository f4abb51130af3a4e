package models

import (
	"math"

	"github.com/san-kum/episim/internal/dynamo"
)

// SIR is the Kermack-McKendrick model over the [S, I, R, V] state layout:
//
//	dS/dt = -beta*S*I/N
//	dI/dt =  beta*S*I/N - gamma*I
//	dR/dt =  gamma*I
//	dV/dt =  0
//
// V holds vaccine-immunized individuals when they are tracked apart from R.
// There is no waning immunity, so V never changes.
type SIR struct {
	Beta       float64
	Gamma      float64
	Population float64
}

// NewSIR validates the rates and population and returns the system.
// Rates above 1 are accepted.
func NewSIR(beta, gamma, population float64) (*SIR, error) {
	if beta < 0 {
		return nil, dynamo.InvalidParameter("beta", beta, ">= 0")
	}
	if gamma < 0 {
		return nil, dynamo.InvalidParameter("gamma", gamma, ">= 0")
	}
	if !(population > 0) {
		return nil, dynamo.InvalidParameter("population", population, "> 0")
	}
	return &SIR{Beta: beta, Gamma: gamma, Population: population}, nil
}

func (m *SIR) StateDim() int { return dynamo.NumCompartments }

// Total is the conserved population N.
func (m *SIR) Total() float64 { return m.Population }

func (m *SIR) Derive(x dynamo.State, _ float64) dynamo.State {
	infection := m.Beta * x[dynamo.S] * x[dynamo.I] / m.Population
	recovery := m.Gamma * x[dynamo.I]
	return dynamo.State{-infection, infection - recovery, recovery, 0}
}

// BasicReproduction returns beta/gamma, or +Inf when gamma is zero.
func (m *SIR) BasicReproduction() float64 {
	if m.Gamma == 0 {
		if m.Beta == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return m.Beta / m.Gamma
}
