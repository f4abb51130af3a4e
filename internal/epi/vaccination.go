package epi

import (
	"fmt"

	"github.com/san-kum/episim/internal/dynamo"
)

// Vaccination describes a campaign applied before the outbreak starts.
type Vaccination struct {
	Proportion float64 `json:"proportion" yaml:"proportion"`
	Efficacy   float64 `json:"efficacy" yaml:"efficacy"`
}

// Validate checks both fields lie in [0, 1].
func (v Vaccination) Validate() error {
	if !(v.Proportion >= 0 && v.Proportion <= 1) {
		return dynamo.InvalidParameter("vaccinated_proportion", v.Proportion, "in [0, 1]")
	}
	if !(v.Efficacy >= 0 && v.Efficacy <= 1) {
		return dynamo.InvalidParameter("vaccine_efficacy", v.Efficacy, "in [0, 1]")
	}
	return nil
}

// Immunized is the number of people the campaign removes from S: N*p*e.
func (v Vaccination) Immunized(n float64) float64 {
	return n * v.Proportion * v.Efficacy
}

// InitialConditions splits a population of n into the step-0 state.
//
// The immunized share goes to R, or to V when trackVaccinated is set; seed
// people start infected and the rest are susceptible. Inputs are never
// clamped: out-of-range values, or an immunized share that leaves no room for
// the seed, return ErrInvalidParameter.
func InitialConditions(n, seed float64, vac Vaccination, trackVaccinated bool) (dynamo.State, error) {
	if !(n > 0) {
		return nil, dynamo.InvalidParameter("population", n, "> 0")
	}
	if !(seed >= 0) {
		return nil, dynamo.InvalidParameter("seed_infected", seed, ">= 0")
	}
	if err := vac.Validate(); err != nil {
		return nil, err
	}

	immunized := vac.Immunized(n)
	s0 := n - immunized - seed
	if s0 < 0 {
		return nil, fmt.Errorf("%w: %g immunized plus %g seed infected exceed population %g",
			dynamo.ErrInvalidParameter, immunized, seed, n)
	}

	x0 := make(dynamo.State, dynamo.NumCompartments)
	x0[dynamo.S] = s0
	x0[dynamo.I] = seed
	if trackVaccinated {
		x0[dynamo.V] = immunized
	} else {
		x0[dynamo.R] = immunized
	}
	return x0, nil
}
