package integrators

import "github.com/hybridsim/hybridsim/internal/hybrid"

// RK4 is the classical fourth-order Runge-Kutta integrator: one
// deterministic step straight to the target time. Scratch buffers are
// reused across steps.
type RK4 struct {
	k1, k2, k3, k4 hybrid.Vector
	scratch        hybrid.Vector
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(hybrid.Vector, n)
		r.k2 = make(hybrid.Vector, n)
		r.k3 = make(hybrid.Vector, n)
		r.k4 = make(hybrid.Vector, n)
		r.scratch = make(hybrid.Vector, n)
	}
}

func (r *RK4) Step(sys hybrid.System, ctx *hybrid.Context, target float64) (float64, error) {
	t := ctx.Time()
	dt := target - t
	if dt <= 0 {
		return t, nil
	}

	x := ctx.Continuous()
	n := len(x)
	r.ensureScratch(n)

	k1, err := derivatives(sys, ctx)
	if err != nil {
		return t, err
	}
	copy(r.k1, k1)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	k2, err := derivativesAt(sys, ctx, r.scratch, t+dt*0.5)
	if err != nil {
		return t, err
	}
	copy(r.k2, k2)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	k3, err := derivativesAt(sys, ctx, r.scratch, t+dt*0.5)
	if err != nil {
		return t, err
	}
	copy(r.k3, k3)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	k4, err := derivativesAt(sys, ctx, r.scratch, t+dt)
	if err != nil {
		return t, err
	}
	copy(r.k4, k4)

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	if err := ctx.SetContinuous(r.scratch); err != nil {
		return t, err
	}
	ctx.SetTime(target)
	return target, nil
}
