package simulate

import (
	"fmt"

	"github.com/hybridsim/hybridsim/internal/hybrid"
)

// Status tracks the simulator's position in the stepping state machine.
type Status int

const (
	Idle Status = iota
	Stepping
	IsolatingEvent
	Dispatching
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Stepping:
		return "stepping"
	case IsolatingEvent:
		return "isolating-event"
	case Dispatching:
		return "dispatching"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports how a run ended.
type Outcome int

const (
	Completed Outcome = iota
	RunFailed
)

func (o Outcome) String() string {
	if o == Completed {
		return "completed"
	}
	return "failed"
}

// Config holds the run-time options the simulator recognizes.
type Config struct {
	// MaxStep bounds the candidate step size proposed each iteration.
	MaxStep float64
	// WitnessTolerance is the absolute time tolerance to which a
	// witness crossing is isolated.
	WitnessTolerance float64
	// MaxEventsPerUnitTime bounds dispatched events within any sliding
	// window of one time unit; exceeding it fails the run rather than
	// looping on a Zeno sequence.
	MaxEventsPerUnitTime int
	// ValidateState rejects NaN/Inf states after integration and event
	// dispatch.
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		MaxStep:              0.1,
		WitnessTolerance:     1e-9,
		MaxEventsPerUnitTime: 100,
		ValidateState:        true,
	}
}

// EventRecord is one dispatched event in a run's event log.
type EventRecord struct {
	Time      float64
	Witness   string
	Direction hybrid.Direction
	Action    hybrid.ActionKind
}

func (e EventRecord) String() string {
	return fmt.Sprintf("t=%.6f %s (%s, %s)", e.Time, e.Witness, e.Direction, e.Action)
}

// Result collects everything a run produced: the committed trajectory
// trace, the event log, and the outcome. The final context itself lives
// in the caller's Context, mutated in place.
type Result struct {
	Outcome       Outcome
	FailureReason string
	FailureTime   float64

	Times  []float64
	States []hybrid.Vector
	Events []EventRecord

	StepsTaken   int
	WitnessEvals int
	EnergyDrift  float64
}
