package models

import (
	"fmt"
	"math"

	"github.com/hybridsim/hybridsim/internal/hybrid"
	"github.com/hybridsim/hybridsim/internal/system"
)

// Logistic evolves a single state along the logistic differential
// equation dx/dt = alpha*(1 - (x/k)^nu)*t. K is the upper asymptote,
// Alpha the growth rate, and Nu shapes where maximum growth occurs. A
// crosses-zero witness on the state publishes when the trajectory
// passes through zero.
type Logistic struct {
	system.LeafBase
	K     float64
	Alpha float64
	Nu    float64

	witness *hybrid.WitnessFunction
	publish func(*hybrid.Context)
}

func NewLogistic() *Logistic {
	l := &Logistic{
		K:     1.0,
		Alpha: 1.0,
		Nu:    1.0,
	}
	l.SetName("logistic")
	l.DeclareContinuousState(1)
	l.witness = &hybrid.WitnessFunction{
		Name:      "state",
		Direction: hybrid.CrossesZero,
		Action:    hybrid.Publish,
		Eval: func(ctx *hybrid.Context) float64 {
			return ctx.Continuous()[0]
		},
	}
	return l
}

func (l *Logistic) Derivatives(ctx *hybrid.Context) (hybrid.Vector, error) {
	t := ctx.Time()
	x := ctx.Continuous()[0]
	return hybrid.Vector{l.Alpha * (1 - math.Pow(x/l.K, l.Nu)) * t}, nil
}

func (l *Logistic) Witnesses(ctx *hybrid.Context) []*hybrid.WitnessFunction {
	return []*hybrid.WitnessFunction{l.witness}
}

func (l *Logistic) HandleEvent(ev hybrid.Event, ctx *hybrid.Context) error {
	if l.publish != nil {
		l.publish(ctx)
	}
	return nil
}

// SetPublishCallback registers a callback invoked each time the
// crosses-zero witness fires.
func (l *Logistic) SetPublishCallback(fn func(*hybrid.Context)) {
	l.publish = fn
}

func (l *Logistic) GetParams() map[string]float64 {
	return map[string]float64{
		"k":     l.K,
		"alpha": l.Alpha,
		"nu":    l.Nu,
	}
}

func (l *Logistic) SetParam(name string, value float64) error {
	switch name {
	case "k":
		l.K = value
	case "alpha":
		l.Alpha = value
	case "nu":
		l.Nu = value
	default:
		return fmt.Errorf("logistic: unknown parameter %q", name)
	}
	return nil
}
