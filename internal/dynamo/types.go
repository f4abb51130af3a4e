package dynamo

import (
	"math"
	"strconv"
)

// Compartment indexes into a State.
const (
	S = iota
	I
	R
	V
	NumCompartments
)

// CompartmentNames lists compartment labels in State order.
var CompartmentNames = [NumCompartments]string{"S", "I", "R", "V"}

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Sum returns the total population held by the state.
func (s State) Sum() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Conserved is implemented by systems whose state sum is invariant.
type Conserved interface {
	Total() float64
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

// CompartmentName labels index i of a State.
func CompartmentName(i int) string {
	if i >= 0 && i < NumCompartments {
		return CompartmentNames[i]
	}
	return "x" + strconv.Itoa(i)
}
