package models

import (
	"context"
	"math"
	"testing"

	"github.com/hybridsim/hybridsim/internal/hybrid"
	"github.com/hybridsim/hybridsim/internal/integrators"
	"github.com/hybridsim/hybridsim/internal/simulate"
)

func TestLogisticDerivative(t *testing.T) {
	l := NewLogistic()
	ctx := l.AllocateContext()
	ctx.SetTime(2.0)
	ctx.SetContinuous(hybrid.Vector{0})

	dx, err := l.Derivatives(ctx)
	if err != nil {
		t.Fatalf("Derivatives failed: %v", err)
	}
	// At x=0 the growth term is alpha*t.
	if math.Abs(dx[0]-2.0) > 1e-12 {
		t.Errorf("expected derivative 2.0, got %f", dx[0])
	}
}

func TestLogisticPublishesOnZeroCrossing(t *testing.T) {
	l := NewLogistic()
	ctx := l.AllocateContext()
	ctx.SetContinuous(hybrid.Vector{-0.5})

	var publishes []float64
	l.SetPublishCallback(func(ctx *hybrid.Context) {
		publishes = append(publishes, ctx.Time())
	})

	sim := simulate.New(l, integrators.NewRK45())
	result, err := sim.Run(context.Background(), ctx, 2.0, simulate.DefaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(publishes) != 1 {
		t.Fatalf("published %d times, want once", len(publishes))
	}
	// Solving dx/dt = (1-x)t from x(0)=-0.5 puts the zero crossing at
	// t = sqrt(2*ln(1.5)).
	want := math.Sqrt(2 * math.Log(1.5))
	if math.Abs(publishes[0]-want) > 1e-3 {
		t.Errorf("crossing at t=%.6f, want %.6f", publishes[0], want)
	}
	if len(result.Events) != 1 || result.Events[0].Witness != "state" {
		t.Errorf("event log = %v", result.Events)
	}
}

func TestLogisticParams(t *testing.T) {
	l := NewLogistic()
	if err := l.SetParam("alpha", 2.5); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	if l.Alpha != 2.5 {
		t.Errorf("alpha = %f, want 2.5", l.Alpha)
	}
	if err := l.SetParam("bogus", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if got := l.GetParams()["alpha"]; got != 2.5 {
		t.Errorf("GetParams alpha = %f, want 2.5", got)
	}
}
