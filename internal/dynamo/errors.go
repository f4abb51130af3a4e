package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a rate, proportion or size outside its domain.
	ErrInvalidParameter = errors.New("dynamo: parameter out of valid domain")

	// ErrUnknownSegment indicates a segment with no resolvable population.
	ErrUnknownSegment = errors.New("dynamo: unknown segment")

	// ErrNumericalInstability indicates a compartment left [0, N] during integration.
	ErrNumericalInstability = errors.New("dynamo: numerical instability (compartment left [0, N])")

	// ErrLengthMismatch indicates trajectories of different lengths were combined.
	ErrLengthMismatch = errors.New("dynamo: trajectory length mismatch")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.2f) state=%v: %v", e.Step, e.Time, []float64(e.State), e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// InvalidParameter returns an ErrInvalidParameter describing the offending value.
func InvalidParameter(name string, value float64, domain string) error {
	return fmt.Errorf("%w: %s=%g, want %s", ErrInvalidParameter, name, value, domain)
}
