package metrics

import (
	"math"

	"github.com/san-kum/episim/internal/dynamo"
)

// MassDrift tracks the largest relative deviation of the population from its
// value at the first observation.
type MassDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift() *MassDrift {
	return &MassDrift{name: "mass_drift"}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(x dynamo.State, _ float64) {
	total := x.Sum()
	if m.samples == 0 {
		m.initial = total
	}
	m.samples++

	if m.initial != 0 {
		drift := math.Abs(total-m.initial) / math.Abs(m.initial)
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *MassDrift) Value() float64 {
	return m.maxDrift
}

func (m *MassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}
