package integrators

import (
	"fmt"
	"math"

	"github.com/hybridsim/hybridsim/internal/hybrid"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the Dormand-Prince error-controlled integrator. It subdivides
// the interval internally, shrinking rejected steps, but never moves time
// past the target. A step shrunk below MinStep or a substep count beyond
// MaxSubsteps is a fatal numeric failure.
type RK45 struct {
	Tol         float64
	MinStep     float64
	MaxSubsteps int

	safety   float64
	minScale float64
	maxScale float64
	dt       float64 // suggested size carried across calls
	x0       hybrid.Vector
}

func NewRK45() *RK45 {
	return &RK45{
		Tol:         1e-6,
		MinStep:     1e-10,
		MaxSubsteps: 10000,
		safety:      0.9,
		minScale:    0.2,
		maxScale:    10.0,
	}
}

func (r *RK45) Step(sys hybrid.System, ctx *hybrid.Context, target float64) (float64, error) {
	t := ctx.Time()
	if target <= t {
		return t, nil
	}
	if r.dt <= 0 {
		r.dt = target - t
	}

	substeps := 0
	for t < target {
		substeps++
		if substeps > r.MaxSubsteps {
			return t, fmt.Errorf("%w: %d substeps toward t=%.6f", hybrid.ErrStepBudget, r.MaxSubsteps, target)
		}

		dt := math.Min(r.dt, target-t)
		xNew, errRatio, err := r.attempt(sys, ctx, dt)
		if err != nil {
			return t, err
		}

		if errRatio > 1 {
			// Reject: shrink and retry from the same state.
			scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
			r.dt = dt * scale
			if r.dt < r.MinStep {
				return t, fmt.Errorf("%w: dt=%.3e at t=%.6f", hybrid.ErrStepTooSmall, r.dt, t)
			}
			if err := ctx.SetContinuous(r.x0); err != nil {
				return t, err
			}
			ctx.SetTime(t)
			continue
		}

		// Accept.
		t += dt
		if err := ctx.SetContinuous(xNew); err != nil {
			return t, err
		}
		ctx.SetTime(t)

		if errRatio > 0 {
			r.dt = dt * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
		} else {
			r.dt = dt * r.maxScale
		}
	}
	return t, nil
}

// x0 holds the state at the start of the current attempt so a rejected
// step can be retried.
func (r *RK45) attempt(sys hybrid.System, ctx *hybrid.Context, dt float64) (hybrid.Vector, float64, error) {
	t := ctx.Time()
	x := ctx.Continuous()
	n := len(x)
	r.x0 = x.Clone()

	k1, err := derivatives(sys, ctx)
	if err != nil {
		return nil, 0, err
	}
	k1 = k1.Clone()

	stage := make(hybrid.Vector, n)
	for i := 0; i < n; i++ {
		stage[i] = x[i] + dt*b21*k1[i]
	}
	k2, err := derivativesAt(sys, ctx, stage, t+a2*dt)
	if err != nil {
		return nil, 0, err
	}
	k2 = k2.Clone()

	for i := 0; i < n; i++ {
		stage[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3, err := derivativesAt(sys, ctx, stage, t+a3*dt)
	if err != nil {
		return nil, 0, err
	}
	k3 = k3.Clone()

	for i := 0; i < n; i++ {
		stage[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4, err := derivativesAt(sys, ctx, stage, t+a4*dt)
	if err != nil {
		return nil, 0, err
	}
	k4 = k4.Clone()

	for i := 0; i < n; i++ {
		stage[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5, err := derivativesAt(sys, ctx, stage, t+a5*dt)
	if err != nil {
		return nil, 0, err
	}
	k5 = k5.Clone()

	for i := 0; i < n; i++ {
		stage[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6, err := derivativesAt(sys, ctx, stage, t+dt)
	if err != nil {
		return nil, 0, err
	}
	k6 = k6.Clone()

	xNew := make(hybrid.Vector, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7, err := derivativesAt(sys, ctx, xNew, t+dt)
	if err != nil {
		return nil, 0, err
	}

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := math.Abs(x[i]) + math.Abs(dt*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	return xNew, errMax / r.Tol, nil
}
