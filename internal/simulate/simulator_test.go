package simulate

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/hybridsim/hybridsim/internal/hybrid"
	"github.com/hybridsim/hybridsim/internal/integrators"
	"github.com/hybridsim/hybridsim/internal/system"
)

// ramp is dx/dt = 1 with a crosses-zero witness on x, recording each
// dispatch it receives.
type ramp struct {
	system.LeafBase
	witness   *hybrid.WitnessFunction
	fired     []float64 // event times
	witnessAt []float64 // witness value at each dispatch
}

func newRamp() *ramp {
	r := &ramp{}
	r.SetName("ramp")
	r.DeclareContinuousState(1)
	r.witness = &hybrid.WitnessFunction{
		Name:      "x",
		Direction: hybrid.CrossesZero,
		Action:    hybrid.Publish,
		Eval: func(ctx *hybrid.Context) float64 {
			return ctx.Continuous()[0]
		},
	}
	return r
}

func (r *ramp) Derivatives(ctx *hybrid.Context) (hybrid.Vector, error) {
	return hybrid.Vector{1}, nil
}

func (r *ramp) Witnesses(ctx *hybrid.Context) []*hybrid.WitnessFunction {
	return []*hybrid.WitnessFunction{r.witness}
}

func (r *ramp) HandleEvent(ev hybrid.Event, ctx *hybrid.Context) error {
	r.fired = append(r.fired, ev.Time)
	r.witnessAt = append(r.witnessAt, r.witness.Eval(ctx))
	return nil
}

func TestSimulator_RampCrossesZeroOnce(t *testing.T) {
	sys := newRamp()
	ctx := sys.AllocateContext()
	ctx.SetContinuous(hybrid.Vector{-0.5})

	sim := New(sys, integrators.NewRK4())
	result, err := sim.Run(context.Background(), ctx, 1.0, DefaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Outcome != Completed {
		t.Fatalf("outcome = %v, want completed", result.Outcome)
	}

	if len(sys.fired) != 1 {
		t.Fatalf("event dispatched %d times, want exactly once", len(sys.fired))
	}
	if math.Abs(sys.fired[0]-0.5) > 1e-6 {
		t.Errorf("trigger time = %.9f, want ~0.5", sys.fired[0])
	}
	if math.Abs(sys.witnessAt[0]) > 1e-6 {
		t.Errorf("witness at trigger = %.2e, want ~0", sys.witnessAt[0])
	}
	if len(result.Events) != 1 || result.Events[0].Witness != "x" {
		t.Errorf("event log = %v", result.Events)
	}
	if ctx.Time() != 1.0 {
		t.Errorf("final time = %v, want 1.0", ctx.Time())
	}
	if sim.Status() != Done {
		t.Errorf("status = %v, want done", sim.Status())
	}
}

func TestSimulator_TriggerTimeBracketed(t *testing.T) {
	sys := newRamp()
	ctx := sys.AllocateContext()
	ctx.SetContinuous(hybrid.Vector{-0.5})

	cfg := DefaultConfig()
	cfg.WitnessTolerance = 1e-10
	sim := New(sys, integrators.NewRK4())
	if _, err := sim.Run(context.Background(), ctx, 1.0, cfg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// dx/dt = 1, so witness value at the trigger bounds the time error.
	if sys.witnessAt[0] < 0 || sys.witnessAt[0] > 1e-6 {
		t.Errorf("isolated crossing not on/after the root: witness = %.3e", sys.witnessAt[0])
	}
}

func TestSimulator_Deterministic(t *testing.T) {
	run := func() (*Result, []float64) {
		sys := newRamp()
		ctx := sys.AllocateContext()
		ctx.SetContinuous(hybrid.Vector{-0.5})
		sim := New(sys, integrators.NewRK4())
		result, err := sim.Run(context.Background(), ctx, 1.0, DefaultConfig())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result, ctx.Continuous()
	}

	r1, x1 := run()
	r2, x2 := run()

	if !reflect.DeepEqual(r1.Events, r2.Events) {
		t.Errorf("event logs differ:\n%v\n%v", r1.Events, r2.Events)
	}
	if !reflect.DeepEqual(r1.Times, r2.Times) {
		t.Error("trajectory times differ between identical runs")
	}
	if !reflect.DeepEqual(x1, x2) {
		t.Errorf("final states differ: %v vs %v", x1, x2)
	}
}

func TestSimulator_CloneDoesNotMutateOriginal(t *testing.T) {
	sys := newRamp()
	original := sys.AllocateContext()
	original.SetContinuous(hybrid.Vector{-0.5})

	clone := original.Clone()
	sim := New(sys, integrators.NewRK4())
	if _, err := sim.Run(context.Background(), clone, 1.0, DefaultConfig()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if original.Time() != 0 {
		t.Errorf("original time mutated: %v", original.Time())
	}
	if got := original.Continuous(); got[0] != -0.5 {
		t.Errorf("original state mutated: %v", got)
	}
}

// buzzer has a witness oscillating with ~20 crossings per time unit.
type buzzer struct {
	system.LeafBase
	witness *hybrid.WitnessFunction
}

func newBuzzer() *buzzer {
	b := &buzzer{}
	b.SetName("buzzer")
	b.DeclareContinuousState(1)
	b.witness = &hybrid.WitnessFunction{
		Name:      "buzz",
		Direction: hybrid.CrossesZero,
		Action:    hybrid.Publish,
		Eval: func(ctx *hybrid.Context) float64 {
			return math.Sin(20 * math.Pi * ctx.Time())
		},
	}
	return b
}

func (b *buzzer) Derivatives(ctx *hybrid.Context) (hybrid.Vector, error) {
	return hybrid.Vector{0}, nil
}

func (b *buzzer) Witnesses(ctx *hybrid.Context) []*hybrid.WitnessFunction {
	return []*hybrid.WitnessFunction{b.witness}
}

func TestSimulator_ExcessiveEventsFails(t *testing.T) {
	sys := newBuzzer()
	ctx := sys.AllocateContext()

	cfg := DefaultConfig()
	cfg.MaxStep = 0.01
	cfg.MaxEventsPerUnitTime = 10

	sim := New(sys, integrators.NewRK4())
	result, err := sim.Run(context.Background(), ctx, 10.0, cfg)
	if !errors.Is(err, hybrid.ErrExcessiveEvents) {
		t.Fatalf("expected ErrExcessiveEvents, got %v", err)
	}
	if result.Outcome != RunFailed {
		t.Errorf("outcome = %v, want failed", result.Outcome)
	}
	if result.FailureTime <= 0 || result.FailureTime >= 10.0 {
		t.Errorf("failure time = %v, want mid-run", result.FailureTime)
	}
	if sim.Status() != Failed {
		t.Errorf("status = %v, want failed", sim.Status())
	}

	var simErr *hybrid.SimulationError
	if !errors.As(err, &simErr) {
		t.Error("error does not carry SimulationError context")
	}
}

// twin carries two witnesses that cross zero at the same instant.
type twin struct {
	system.LeafBase
	ws    []*hybrid.WitnessFunction
	order []string
}

func newTwin() *twin {
	w := &twin{}
	w.SetName("twin")
	w.DeclareContinuousState(1)
	eval := func(ctx *hybrid.Context) float64 {
		return ctx.Continuous()[0]
	}
	w.ws = []*hybrid.WitnessFunction{
		{Name: "first", Direction: hybrid.CrossesZero, Action: hybrid.Publish, Eval: eval},
		{Name: "second", Direction: hybrid.CrossesZero, Action: hybrid.Publish, Eval: eval},
	}
	return w
}

func (w *twin) Derivatives(ctx *hybrid.Context) (hybrid.Vector, error) {
	return hybrid.Vector{1}, nil
}

func (w *twin) Witnesses(ctx *hybrid.Context) []*hybrid.WitnessFunction {
	return w.ws
}

func (w *twin) HandleEvent(ev hybrid.Event, ctx *hybrid.Context) error {
	w.order = append(w.order, ev.Witness.Name)
	return nil
}

func TestSimulator_SimultaneousEventsDeclarationOrder(t *testing.T) {
	sys := newTwin()
	ctx := sys.AllocateContext()
	ctx.SetContinuous(hybrid.Vector{-0.25})

	sim := New(sys, integrators.NewRK4())
	result, err := sim.Run(context.Background(), ctx, 1.0, DefaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(sys.order) != 2 || sys.order[0] != "first" || sys.order[1] != "second" {
		t.Errorf("dispatch order = %v, want [first second]", sys.order)
	}
	if len(result.Events) != 2 || result.Events[0].Time != result.Events[1].Time {
		t.Errorf("simultaneous events not logged at one instant: %v", result.Events)
	}
}

// decay is dx/dt = -k*x with no events.
type decay struct {
	system.LeafBase
	k float64
}

func newDecay(name string, k float64) *decay {
	d := &decay{k: k}
	d.SetName(name)
	d.DeclareContinuousState(1)
	return d
}

func (d *decay) Derivatives(ctx *hybrid.Context) (hybrid.Vector, error) {
	return hybrid.Vector{-d.k * ctx.Continuous()[0]}, nil
}

func TestSimulator_DiagramMatchesIndependentLeaves(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxStep = 0.05

	runLeaf := func(k, x0 float64) hybrid.Vector {
		sys := newDecay("solo", k)
		ctx := sys.AllocateContext()
		ctx.SetContinuous(hybrid.Vector{x0})
		sim := New(sys, integrators.NewRK4())
		if _, err := sim.Run(context.Background(), ctx, 1.0, cfg); err != nil {
			t.Fatalf("leaf run failed: %v", err)
		}
		return ctx.Continuous()
	}

	b := system.NewDiagramBuilder("pair")
	b.Add(newDecay("a", 1.0))
	b.Add(newDecay("b", 2.0))
	d, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	ctx := d.AllocateContext()
	ctx.SetContinuous(hybrid.Vector{1.0, 1.0})

	sim := New(d, integrators.NewRK4())
	if _, err := sim.Run(context.Background(), ctx, 1.0, cfg); err != nil {
		t.Fatalf("diagram run failed: %v", err)
	}

	got := ctx.Continuous()
	wantA := runLeaf(1.0, 1.0)
	wantB := runLeaf(2.0, 1.0)

	if math.Abs(got[0]-wantA[0]) > 1e-9 {
		t.Errorf("child a trajectory diverged: %v vs %v", got[0], wantA[0])
	}
	if math.Abs(got[1]-wantB[0]) > 1e-9 {
		t.Errorf("child b trajectory diverged: %v vs %v", got[1], wantB[0])
	}
}

// poison evaluates its witness to NaN past t=0.2.
type poison struct {
	system.LeafBase
	witness *hybrid.WitnessFunction
}

func newPoison() *poison {
	p := &poison{}
	p.SetName("poison")
	p.DeclareContinuousState(1)
	p.witness = &hybrid.WitnessFunction{
		Name:      "bad",
		Direction: hybrid.CrossesZero,
		Action:    hybrid.Publish,
		Eval: func(ctx *hybrid.Context) float64 {
			if ctx.Time() > 0.2 {
				return math.NaN()
			}
			return -1
		},
	}
	return p
}

func (p *poison) Derivatives(ctx *hybrid.Context) (hybrid.Vector, error) {
	return hybrid.Vector{0}, nil
}

func (p *poison) Witnesses(ctx *hybrid.Context) []*hybrid.WitnessFunction {
	return []*hybrid.WitnessFunction{p.witness}
}

func TestSimulator_NonFiniteWitnessFatal(t *testing.T) {
	sys := newPoison()
	ctx := sys.AllocateContext()

	sim := New(sys, integrators.NewRK4())
	result, err := sim.Run(context.Background(), ctx, 1.0, DefaultConfig())
	if !errors.Is(err, hybrid.ErrWitnessValue) {
		t.Fatalf("expected ErrWitnessValue, got %v", err)
	}
	if result.Outcome != RunFailed {
		t.Errorf("outcome = %v, want failed", result.Outcome)
	}
	// Context retained at the last committed time, not the failed step.
	if ctx.Time() > 0.3 {
		t.Errorf("context advanced past failure: t=%v", ctx.Time())
	}
}

func TestSimulator_Cancellation(t *testing.T) {
	sys := newRamp()
	hctx := sys.AllocateContext()
	hctx.SetContinuous(hybrid.Vector{-0.5})

	cctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := New(sys, integrators.NewRK4())
	result, err := sim.Run(cctx, hctx, 1.0, DefaultConfig())
	if !errors.Is(err, hybrid.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if result == nil {
		t.Fatal("partial result not returned on cancellation")
	}
}

func TestSimulator_InvalidConfig(t *testing.T) {
	sys := newRamp()
	sim := New(sys, integrators.NewRK4())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero max step", Config{MaxStep: 0, WitnessTolerance: 1e-9, MaxEventsPerUnitTime: 10}},
		{"negative max step", Config{MaxStep: -0.1, WitnessTolerance: 1e-9, MaxEventsPerUnitTime: 10}},
		{"zero tolerance", Config{MaxStep: 0.1, WitnessTolerance: 0, MaxEventsPerUnitTime: 10}},
		{"zero event bound", Config{MaxStep: 0.1, WitnessTolerance: 1e-9, MaxEventsPerUnitTime: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := sys.AllocateContext()
			if _, err := sim.Run(context.Background(), ctx, 1.0, tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSimulator_ObserverSeesCommittedSteps(t *testing.T) {
	sys := newDecay("obs", 1.0)
	ctx := sys.AllocateContext()
	ctx.SetContinuous(hybrid.Vector{1.0})

	count := 0
	sim := New(sys, integrators.NewRK4())
	sim.AddObserver(observerFunc(func(ctx *hybrid.Context) { count++ }))

	cfg := DefaultConfig()
	cfg.MaxStep = 0.1
	result, err := sim.Run(context.Background(), ctx, 1.0, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if count != result.StepsTaken {
		t.Errorf("observer saw %d steps, result has %d", count, result.StepsTaken)
	}
	if count < 9 {
		t.Errorf("observer saw %d steps, expected about 10", count)
	}
}

type observerFunc func(*hybrid.Context)

func (f observerFunc) OnStep(ctx *hybrid.Context) { f(ctx) }
