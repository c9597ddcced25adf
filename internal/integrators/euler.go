package integrators

import (
	"fmt"

	"github.com/hybridsim/hybridsim/internal/hybrid"
)

// Euler is the explicit Euler integrator: one deterministic step straight
// to the target time.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys hybrid.System, ctx *hybrid.Context, target float64) (float64, error) {
	t := ctx.Time()
	dt := target - t
	if dt <= 0 {
		return t, nil
	}

	dx, err := derivatives(sys, ctx)
	if err != nil {
		return t, err
	}

	x := ctx.Continuous()
	for i := range x {
		x[i] += dt * dx[i]
	}
	if err := ctx.SetContinuous(x); err != nil {
		return t, err
	}
	ctx.SetTime(target)
	return target, nil
}

// derivatives evaluates the system derivative at the context's current
// state and rejects non-finite results.
func derivatives(sys hybrid.System, ctx *hybrid.Context) (hybrid.Vector, error) {
	dx, err := sys.Derivatives(ctx)
	if err != nil {
		return nil, err
	}
	if len(dx) != ctx.NumContinuous() {
		return nil, fmt.Errorf("%w: derivative size %d, state size %d",
			hybrid.ErrDimensionMismatch, len(dx), ctx.NumContinuous())
	}
	if !dx.IsValid() {
		return nil, fmt.Errorf("%w: derivative at t=%.6f", hybrid.ErrInvalidState, ctx.Time())
	}
	return dx, nil
}

// derivativesAt evaluates the derivative at an intermediate state and
// time, leaving the context set to that state for the caller to
// overwrite.
func derivativesAt(sys hybrid.System, ctx *hybrid.Context, x hybrid.Vector, t float64) (hybrid.Vector, error) {
	if err := ctx.SetContinuous(x); err != nil {
		return nil, err
	}
	ctx.SetTime(t)
	return derivatives(sys, ctx)
}
