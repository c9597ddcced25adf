package hybrid

import (
	"errors"
	"testing"
)

func TestContext_Allocation(t *testing.T) {
	ctx := NewContext(3, []int{1, 2}, Vector{9.81}, 1, []int{2})

	if ctx.Time() != 0 {
		t.Errorf("new context time = %v, want 0", ctx.Time())
	}
	if ctx.NumContinuous() != 3 {
		t.Errorf("NumContinuous = %d, want 3", ctx.NumContinuous())
	}
	if ctx.NumDiscrete() != 2 {
		t.Errorf("NumDiscrete = %d, want 2", ctx.NumDiscrete())
	}
	if got := ctx.Discrete(1); len(got) != 2 {
		t.Errorf("Discrete(1) size = %d, want 2", len(got))
	}
	if ctx.NumParams() != 1 || ctx.Param(0) != 9.81 {
		t.Errorf("params = %v, want [9.81]", ctx.Params())
	}
	if ctx.NumInputs() != 1 {
		t.Errorf("NumInputs = %d, want 1", ctx.NumInputs())
	}
}

func TestContext_SetContinuousSizeCheck(t *testing.T) {
	ctx := NewContext(2, nil, nil, 0, nil)

	if err := ctx.SetContinuous(Vector{1, 2, 3}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if err := ctx.SetContinuous(Vector{1, 2}); err != nil {
		t.Errorf("SetContinuous failed: %v", err)
	}
	if got := ctx.Continuous(); got[0] != 1 || got[1] != 2 {
		t.Errorf("Continuous = %v", got)
	}
}

func TestContext_InputDefaultsToZeros(t *testing.T) {
	ctx := NewContext(1, nil, nil, 0, []int{3})

	in := ctx.Input(0)
	if len(in) != 3 || in[0] != 0 || in[1] != 0 || in[2] != 0 {
		t.Errorf("unfixed input = %v, want zeros", in)
	}

	if err := ctx.FixInput(0, Vector{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if err := ctx.FixInput(1, Vector{1}); !errors.Is(err, ErrPortOutOfRange) {
		t.Errorf("expected ErrPortOutOfRange, got %v", err)
	}
	if err := ctx.FixInput(0, Vector{1, 2, 3}); err != nil {
		t.Fatalf("FixInput failed: %v", err)
	}
	if in := ctx.Input(0); in[2] != 3 {
		t.Errorf("fixed input = %v", in)
	}
}

func TestContext_CloneIsDeep(t *testing.T) {
	ctx := NewContext(2, []int{1}, Vector{1.5}, 0, []int{1})
	ctx.SetContinuous(Vector{-0.5, 1.0})
	ctx.SetDiscrete(0, Vector{7})
	ctx.FixInput(0, Vector{3})
	ctx.SetTime(2.5)

	clone := ctx.Clone()
	clone.SetContinuous(Vector{99, 99})
	clone.SetDiscrete(0, Vector{-1})
	clone.FixInput(0, Vector{-1})
	clone.SetTime(0)

	if got := ctx.Continuous(); got[0] != -0.5 || got[1] != 1.0 {
		t.Errorf("clone mutated original continuous: %v", got)
	}
	if got := ctx.Discrete(0); got[0] != 7 {
		t.Errorf("clone mutated original discrete: %v", got)
	}
	if got := ctx.Input(0); got[0] != 3 {
		t.Errorf("clone mutated original input: %v", got)
	}
	if ctx.Time() != 2.5 {
		t.Errorf("clone mutated original time: %v", ctx.Time())
	}
}

func TestContext_CopyFromRestores(t *testing.T) {
	ctx := NewContext(1, nil, nil, 0, nil)
	ctx.SetContinuous(Vector{1})
	ctx.SetTime(1.0)

	snapshot := ctx.Clone()

	ctx.SetContinuous(Vector{42})
	ctx.SetTime(9.0)

	if err := ctx.CopyFrom(snapshot); err != nil {
		t.Fatalf("CopyFrom failed: %v", err)
	}
	if got := ctx.Continuous(); got[0] != 1 {
		t.Errorf("restore failed: continuous = %v", got)
	}
	if ctx.Time() != 1.0 {
		t.Errorf("restore failed: time = %v", ctx.Time())
	}

	other := NewContext(2, nil, nil, 0, nil)
	if err := ctx.CopyFrom(other); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestDiagramContext_StackedContinuous(t *testing.T) {
	a := NewContext(2, nil, nil, 0, nil)
	b := NewContext(1, nil, nil, 0, nil)
	a.SetContinuous(Vector{1, 2})
	b.SetContinuous(Vector{3})

	parent := NewDiagramContext([]*Context{a, b}, nil)

	if parent.NumContinuous() != 3 {
		t.Fatalf("NumContinuous = %d, want 3", parent.NumContinuous())
	}
	got := parent.Continuous()
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("stacked continuous = %v", got)
	}

	if err := parent.SetContinuous(Vector{4, 5, 6}); err != nil {
		t.Fatalf("SetContinuous failed: %v", err)
	}
	if got := b.Continuous(); got[0] != 6 {
		t.Errorf("scatter failed: child b = %v", got)
	}

	parent.SetTime(3.25)
	if a.Time() != 3.25 || b.Time() != 3.25 {
		t.Errorf("SetTime did not propagate: %v %v", a.Time(), b.Time())
	}
}

type countingSlot struct {
	n      int
	clones int
}

func (c *countingSlot) CloneAbstract() any {
	return &countingSlot{n: c.n, clones: c.clones + 1}
}

func TestContext_AbstractCloner(t *testing.T) {
	ctx := NewContext(0, nil, nil, 1, nil)
	ctx.SetAbstract(0, &countingSlot{n: 5})

	clone := ctx.Clone()
	slot := clone.Abstract(0).(*countingSlot)
	if slot.n != 5 || slot.clones != 1 {
		t.Errorf("abstract slot not deep-cloned: %+v", slot)
	}

	slot.n = 10
	if ctx.Abstract(0).(*countingSlot).n != 5 {
		t.Error("abstract clone shares storage with original")
	}
}
