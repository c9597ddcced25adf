package system

import (
	"fmt"

	"github.com/hybridsim/hybridsim/internal/hybrid"
)

// OutputCalc computes the value of one output port from a context.
type OutputCalc func(ctx *hybrid.Context) hybrid.Vector

type outputPort struct {
	size int
	calc OutputCalc
}

// LeafBase carries the declared shape of a leaf system: continuous-state
// size, discrete groups, abstract slots, numeric parameters, and ports.
// Concrete systems embed it and override Derivatives (and Witnesses and
// HandleEvent when they have events).
//
// The zero value is a stateless system with no ports; call the Declare
// methods during construction, before any context is allocated.
type LeafBase struct {
	name      string
	ncont     int
	discrete  []int
	nabstract int
	params    hybrid.Vector
	inputs    []int
	outputs   []outputPort
}

func (b *LeafBase) SetName(name string) { b.name = name }

func (b *LeafBase) DeclareContinuousState(n int) { b.ncont = n }

func (b *LeafBase) DeclareDiscreteState(sizes ...int) {
	b.discrete = append(b.discrete, sizes...)
}

func (b *LeafBase) DeclareAbstractState(n int) { b.nabstract = n }

func (b *LeafBase) DeclareNumericParams(defaults ...float64) {
	b.params = append(b.params, defaults...)
}

// DeclareInput adds an input port of the given width and returns its
// index.
func (b *LeafBase) DeclareInput(size int) int {
	b.inputs = append(b.inputs, size)
	return len(b.inputs) - 1
}

// DeclareOutput adds an output port computed by calc and returns its
// index.
func (b *LeafBase) DeclareOutput(size int, calc OutputCalc) int {
	b.outputs = append(b.outputs, outputPort{size: size, calc: calc})
	return len(b.outputs) - 1
}

func (b *LeafBase) Name() string             { return b.name }
func (b *LeafBase) ContinuousStateSize() int { return b.ncont }
func (b *LeafBase) NumInputs() int           { return len(b.inputs) }
func (b *LeafBase) NumOutputs() int          { return len(b.outputs) }
func (b *LeafBase) InputSize(i int) int      { return b.inputs[i] }
func (b *LeafBase) OutputSize(i int) int     { return b.outputs[i].size }

// AllocateContext creates a default context matching the declarations,
// zero state at time zero.
func (b *LeafBase) AllocateContext() *hybrid.Context {
	return hybrid.NewContext(b.ncont, b.discrete, b.params, b.nabstract, b.inputs)
}

// Derivatives defaults to zero dynamics; systems with continuous state
// override it.
func (b *LeafBase) Derivatives(ctx *hybrid.Context) (hybrid.Vector, error) {
	return make(hybrid.Vector, b.ncont), nil
}

// Outputs evaluates every declared output port in order.
func (b *LeafBase) Outputs(ctx *hybrid.Context) ([]hybrid.Vector, error) {
	outs := make([]hybrid.Vector, len(b.outputs))
	for i, p := range b.outputs {
		outs[i] = p.calc(ctx)
		if len(outs[i]) != p.size {
			return nil, fmt.Errorf("%w: %s output %d declared size %d, calc returned %d",
				hybrid.ErrDimensionMismatch, b.name, i, p.size, len(outs[i]))
		}
	}
	return outs, nil
}

// Witnesses defaults to none.
func (b *LeafBase) Witnesses(ctx *hybrid.Context) []*hybrid.WitnessFunction {
	return nil
}

// HandleEvent defaults to a no-op; systems that declare witnesses
// override it.
func (b *LeafBase) HandleEvent(ev hybrid.Event, ctx *hybrid.Context) error {
	return nil
}
