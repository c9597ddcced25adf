package models

import (
	"fmt"

	"github.com/hybridsim/hybridsim/internal/hybrid"
	"github.com/hybridsim/hybridsim/internal/system"
)

// Bouncer is a point mass falling under gravity above a floor at h=0.
// State is [height, velocity]. A becomes-negative witness on the height
// schedules an unrestricted update that reverses the velocity, scaled by
// the restitution coefficient. With Restitution < 1 the inter-impact
// intervals shrink geometrically, so long runs accumulate events toward
// a Zeno point.
type Bouncer struct {
	system.LeafBase
	Gravity     float64
	Mass        float64
	Restitution float64

	witness *hybrid.WitnessFunction
	Bounces int
}

func NewBouncer() *Bouncer {
	b := &Bouncer{
		Gravity:     9.81,
		Mass:        1.0,
		Restitution: 0.8,
	}
	b.SetName("bouncer")
	b.DeclareContinuousState(2)
	b.witness = &hybrid.WitnessFunction{
		Name:      "height",
		Direction: hybrid.BecomesNegative,
		Action:    hybrid.UnrestrictedUpdate,
		Eval: func(ctx *hybrid.Context) float64 {
			return ctx.Continuous()[0]
		},
	}
	return b
}

func (b *Bouncer) Derivatives(ctx *hybrid.Context) (hybrid.Vector, error) {
	x := ctx.Continuous()
	return hybrid.Vector{x[1], -b.Gravity}, nil
}

func (b *Bouncer) Witnesses(ctx *hybrid.Context) []*hybrid.WitnessFunction {
	return []*hybrid.WitnessFunction{b.witness}
}

// HandleEvent applies the impact reset map: the ball is pinned back to
// the floor and the downward velocity is reflected, scaled by the
// restitution coefficient. Isolation dispatches with the height a hair
// below zero; the reset must not leave it there, or a hop that
// completes within a single step never re-arms the witness.
func (b *Bouncer) HandleEvent(ev hybrid.Event, ctx *hybrid.Context) error {
	x := ctx.Continuous()
	x[0] = 0
	if x[1] < 0 {
		x[1] = -b.Restitution * x[1]
	}
	b.Bounces++
	return ctx.SetContinuous(x)
}

// Energy reports kinetic plus potential energy; each impact removes a
// factor of Restitution squared.
func (b *Bouncer) Energy(ctx *hybrid.Context) float64 {
	x := ctx.Continuous()
	return b.Mass*b.Gravity*x[0] + 0.5*b.Mass*x[1]*x[1]
}

func (b *Bouncer) GetParams() map[string]float64 {
	return map[string]float64{
		"gravity":     b.Gravity,
		"mass":        b.Mass,
		"restitution": b.Restitution,
	}
}

func (b *Bouncer) SetParam(name string, value float64) error {
	switch name {
	case "gravity":
		b.Gravity = value
	case "mass":
		b.Mass = value
	case "restitution":
		b.Restitution = value
	default:
		return fmt.Errorf("bouncer: unknown parameter %q", name)
	}
	return nil
}
