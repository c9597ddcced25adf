package hybrid

import "fmt"

// Direction selects which sign transitions of a witness function qualify
// as a trigger. The three values below are the complete supported set;
// the type is open so callers can treat further variants as an extension
// point.
type Direction int

const (
	// CrossesZero triggers on any sign change, in either direction.
	CrossesZero Direction = iota
	// BecomesPositive triggers only on a non-positive to positive change.
	BecomesPositive
	// BecomesNegative triggers only on a non-negative to negative change.
	BecomesNegative
)

func (d Direction) String() string {
	switch d {
	case CrossesZero:
		return "crosses-zero"
	case BecomesPositive:
		return "becomes-positive"
	case BecomesNegative:
		return "becomes-negative"
	default:
		return "unknown"
	}
}

// ParseDirection is the inverse of Direction.String.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "crosses-zero":
		return CrossesZero, nil
	case "becomes-positive":
		return BecomesPositive, nil
	case "becomes-negative":
		return BecomesNegative, nil
	}
	return 0, fmt.Errorf("unknown witness direction %q", s)
}

// ActionKind tags the discrete event a witness schedules when it fires.
type ActionKind int

const (
	// Publish events observe the context without changing state.
	Publish ActionKind = iota
	// DiscreteUpdate events mutate discrete-state groups.
	DiscreteUpdate
	// UnrestrictedUpdate events may also reset continuous state (a reset
	// map), but never time.
	UnrestrictedUpdate
)

func (a ActionKind) String() string {
	switch a {
	case Publish:
		return "publish"
	case DiscreteUpdate:
		return "discrete-update"
	case UnrestrictedUpdate:
		return "unrestricted-update"
	default:
		return "unknown"
	}
}

// ParseAction is the inverse of ActionKind.String.
func ParseAction(s string) (ActionKind, error) {
	switch s {
	case "publish":
		return Publish, nil
	case "discrete-update":
		return DiscreteUpdate, nil
	case "unrestricted-update":
		return UnrestrictedUpdate, nil
	}
	return 0, fmt.Errorf("unknown event action %q", s)
}

// WitnessFunction is a scalar function of a Context whose qualifying sign
// change marks a discrete event.
//
// Eval must be a pure function of the Context: the simulator calls it
// repeatedly and speculatively while isolating a crossing, so it must be
// free of side effects.
type WitnessFunction struct {
	Name      string
	Direction Direction
	Action    ActionKind
	Eval      func(*Context) float64
}

// ShouldTrigger reports whether the transition from the witness value
// before a step to the value after it qualifies under the direction.
// Zero counts as non-positive and non-negative, so a value sitting
// exactly on zero does not re-trigger.
func (w *WitnessFunction) ShouldTrigger(before, after float64) bool {
	switch w.Direction {
	case CrossesZero:
		return (before <= 0 && after > 0) || (before >= 0 && after < 0)
	case BecomesPositive:
		return before <= 0 && after > 0
	case BecomesNegative:
		return before >= 0 && after < 0
	default:
		return false
	}
}

// Event is a discrete event scheduled by a triggered witness, dispatched
// by the simulator at the isolated trigger time.
type Event struct {
	Witness *WitnessFunction
	Action  ActionKind
	Time    float64
}
