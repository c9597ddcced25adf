package models

import (
	"context"
	"math"
	"testing"

	"github.com/hybridsim/hybridsim/internal/hybrid"
	"github.com/hybridsim/hybridsim/internal/integrators"
	"github.com/hybridsim/hybridsim/internal/simulate"
)

func TestThermostatDerivative(t *testing.T) {
	th := NewThermostat()
	ctx := th.AllocateContext()
	ctx.SetContinuous(hybrid.Vector{20.0})

	dx, err := th.Derivatives(ctx)
	if err != nil {
		t.Fatalf("Derivatives failed: %v", err)
	}
	if math.Abs(dx[0]+2.5) > 1e-12 {
		t.Errorf("heater off: derivative = %f, want -2.5", dx[0])
	}

	ctx.SetDiscrete(0, hybrid.Vector{1})
	dx, err = th.Derivatives(ctx)
	if err != nil {
		t.Fatalf("Derivatives failed: %v", err)
	}
	if math.Abs(dx[0]-2.5) > 1e-12 {
		t.Errorf("heater on: derivative = %f, want 2.5", dx[0])
	}
}

func TestThermostatRelayCycle(t *testing.T) {
	th := NewThermostat()
	ctx := th.AllocateContext()
	ctx.SetContinuous(hybrid.Vector{20.0})

	sim := simulate.New(th, integrators.NewRK4())
	result, err := sim.Run(context.Background(), ctx, 10.0, simulate.DefaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Events) < 3 {
		t.Fatalf("only %d events in 10 time units, expected a sustained relay cycle", len(result.Events))
	}
	// Cooling from 20 hits the low threshold first, then the heater
	// drives past the high one, alternating from there.
	for i, ev := range result.Events {
		want := "below-low"
		if i%2 == 1 {
			want = "above-high"
		}
		if ev.Witness != want {
			t.Fatalf("event %d is %q, want %q", i, ev.Witness, want)
		}
	}

	// Once regulating, the temperature stays inside the hysteresis band
	// plus overshoot slack.
	firstEvent := result.Events[0].Time
	for i, tm := range result.Times {
		if tm <= firstEvent {
			continue
		}
		temp := result.States[i][0]
		if temp < th.Low-0.5 || temp > th.High+0.5 {
			t.Errorf("t=%.3f: temperature %.3f escaped the band [%.1f, %.1f]",
				tm, temp, th.Low, th.High)
		}
	}
}

func TestModelRegistry(t *testing.T) {
	names := List()
	want := []string{"bouncer", "logistic", "thermostat"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("List() = %v, want %v", names, want)
		}
	}

	for _, name := range names {
		sys, err := New(name)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if sys.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, sys.Name())
		}
		if got := DefaultState(name); len(got) != sys.ContinuousStateSize() {
			t.Errorf("DefaultState(%q) has size %d, want %d", name, len(got), sys.ContinuousStateSize())
		}
	}

	if _, err := New("nonexistent"); err == nil {
		t.Error("expected error for unknown model")
	}
}
