package hybrid

import (
	"errors"
	"fmt"
)

// Configuration errors, raised at build time and never retried.
var (
	// ErrUnconnectedInput indicates a mandatory input port with neither a
	// connection nor an exported source.
	ErrUnconnectedInput = errors.New("hybrid: unconnected input port")

	// ErrConnectionCycle indicates a cycle in a diagram's port-connection
	// graph.
	ErrConnectionCycle = errors.New("hybrid: cycle in diagram connections")

	// ErrPortOutOfRange indicates a port index outside the declared range.
	ErrPortOutOfRange = errors.New("hybrid: port index out of range")

	// ErrDimensionMismatch indicates mismatched vector sizes.
	ErrDimensionMismatch = errors.New("hybrid: dimension mismatch")
)

// Numeric and run-time failures, fatal to the current run.
var (
	// ErrInvalidState indicates a NaN or Inf in state or derivatives.
	ErrInvalidState = errors.New("hybrid: invalid state (NaN or Inf detected)")

	// ErrWitnessValue indicates a witness function evaluated non-finite.
	ErrWitnessValue = errors.New("hybrid: non-finite witness value")

	// ErrStepTooSmall indicates an error-controlled integrator shrank its
	// step below the minimum floor.
	ErrStepTooSmall = errors.New("hybrid: integrator step below minimum")

	// ErrStepBudget indicates an integrator exhausted its substep budget.
	ErrStepBudget = errors.New("hybrid: integrator step budget exhausted")

	// ErrExcessiveEvents indicates a Zeno-like event storm, reported
	// distinctly from numeric failures.
	ErrExcessiveEvents = errors.New("hybrid: excessive events")

	// ErrCanceled indicates the run was aborted between steps.
	ErrCanceled = errors.New("hybrid: simulation canceled")
)

// SimulationError wraps a failure with the step and time at which it
// occurred.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
