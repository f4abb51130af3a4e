package sim

import "github.com/san-kum/episim/internal/dynamo"

const (
	DefaultDt        = 1.0
	DefaultSteps     = 160
	DefaultTolerance = 1e-6

	// MaxSteps bounds the work a single run may request.
	MaxSteps = 10000
)

// Config fixes the time axis of a run. Every run compared on one plot must
// share Dt and Steps.
type Config struct {
	Dt        float64
	Steps     int
	Tolerance float64
}

func DefaultConfig() Config {
	return Config{
		Dt:        DefaultDt,
		Steps:     DefaultSteps,
		Tolerance: DefaultTolerance,
	}
}

// Observer is notified with every accepted state, including the initial one.
type Observer interface {
	OnStep(step int, x dynamo.State, t float64)
}
