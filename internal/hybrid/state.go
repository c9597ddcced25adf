package hybrid

import "fmt"

// State holds one system's full mutable state: the continuous vector
// integrated by an Integrator, the discrete-state groups updated only by
// event handlers, and opaque abstract slots.
//
// Vector sizes are fixed at declaration and never change afterwards.
type State struct {
	Continuous Vector
	Discrete   []Vector
	Abstract   []any
}

// Cloner lets an abstract slot value control how it is deep-copied when
// its owning Context is cloned. Values that do not implement it are
// copied by assignment.
type Cloner interface {
	CloneAbstract() any
}

func (s State) Clone() State {
	c := State{Continuous: s.Continuous.Clone()}
	if s.Discrete != nil {
		c.Discrete = make([]Vector, len(s.Discrete))
		for i, d := range s.Discrete {
			c.Discrete[i] = d.Clone()
		}
	}
	if s.Abstract != nil {
		c.Abstract = make([]any, len(s.Abstract))
		for i, a := range s.Abstract {
			if cl, ok := a.(Cloner); ok {
				c.Abstract[i] = cl.CloneAbstract()
			} else {
				c.Abstract[i] = a
			}
		}
	}
	return c
}

// Context is the complete, self-contained snapshot of one system's state,
// time, and fixed parameters at an instant. A diagram's Context is the
// disjoint union of its children's Contexts.
//
// A Context is owned exclusively by its caller and must not be shared
// across goroutines; clone it instead.
type Context struct {
	time     float64
	state    State
	params   Vector
	inputs   []inputPort
	children []*Context
}

// An input port carries its declared width and, when fixed by the caller
// or resolved by an owning diagram, its current value.
type inputPort struct {
	size  int
	value Vector
}

// NewContext allocates a leaf context with the given continuous-state
// size, discrete group sizes, fixed parameters, abstract slot count, and
// input port widths. All state starts zeroed at time zero.
func NewContext(ncont int, discrete []int, params Vector, nabstract int, inputSizes []int) *Context {
	ctx := &Context{
		state: State{Continuous: make(Vector, ncont)},
	}
	if len(discrete) > 0 {
		ctx.state.Discrete = make([]Vector, len(discrete))
		for i, n := range discrete {
			ctx.state.Discrete[i] = make(Vector, n)
		}
	}
	if nabstract > 0 {
		ctx.state.Abstract = make([]any, nabstract)
	}
	ctx.params = params.Clone()
	ctx.inputs = make([]inputPort, len(inputSizes))
	for i, n := range inputSizes {
		ctx.inputs[i] = inputPort{size: n}
	}
	return ctx
}

// NewDiagramContext allocates a composite context over the given child
// contexts. The diagram context owns no continuous state of its own.
func NewDiagramContext(children []*Context, inputSizes []int) *Context {
	ctx := &Context{children: children}
	ctx.inputs = make([]inputPort, len(inputSizes))
	for i, n := range inputSizes {
		ctx.inputs[i] = inputPort{size: n}
	}
	return ctx
}

func (c *Context) Time() float64 { return c.time }

// SetTime advances the context clock. Only the simulator and integrators
// should call it; event handlers must not.
func (c *Context) SetTime(t float64) {
	c.time = t
	for _, child := range c.children {
		child.SetTime(t)
	}
}

// NumContinuous is the total continuous-state size, children included.
func (c *Context) NumContinuous() int {
	n := len(c.state.Continuous)
	for _, child := range c.children {
		n += child.NumContinuous()
	}
	return n
}

// Continuous returns a copy of the stacked continuous state, children
// concatenated in declaration order.
func (c *Context) Continuous() Vector {
	if len(c.children) == 0 {
		return c.state.Continuous.Clone()
	}
	out := make(Vector, 0, c.NumContinuous())
	out = append(out, c.state.Continuous...)
	for _, child := range c.children {
		out = append(out, child.Continuous()...)
	}
	return out
}

// SetContinuous scatters v back across this context and its children.
func (c *Context) SetContinuous(v Vector) error {
	if len(v) != c.NumContinuous() {
		return fmt.Errorf("%w: continuous size %d, got %d", ErrDimensionMismatch, c.NumContinuous(), len(v))
	}
	copy(c.state.Continuous, v[:len(c.state.Continuous)])
	v = v[len(c.state.Continuous):]
	for _, child := range c.children {
		n := child.NumContinuous()
		if err := child.SetContinuous(v[:n]); err != nil {
			return err
		}
		v = v[n:]
	}
	return nil
}

func (c *Context) NumDiscrete() int { return len(c.state.Discrete) }

// Discrete returns a copy of discrete group g.
func (c *Context) Discrete(g int) Vector {
	return c.state.Discrete[g].Clone()
}

func (c *Context) SetDiscrete(g int, v Vector) error {
	if len(v) != len(c.state.Discrete[g]) {
		return fmt.Errorf("%w: discrete group %d size %d, got %d", ErrDimensionMismatch, g, len(c.state.Discrete[g]), len(v))
	}
	copy(c.state.Discrete[g], v)
	return nil
}

func (c *Context) NumAbstract() int { return len(c.state.Abstract) }
func (c *Context) Abstract(i int) any { return c.state.Abstract[i] }
func (c *Context) SetAbstract(i int, v any) { c.state.Abstract[i] = v }

func (c *Context) NumParams() int { return len(c.params) }
func (c *Context) Param(i int) float64 { return c.params[i] }
func (c *Context) Params() Vector { return c.params.Clone() }

func (c *Context) NumInputs() int { return len(c.inputs) }

// FixInput pins input port i to a constant value. Diagrams also use this
// path to write resolved connection values into child contexts.
func (c *Context) FixInput(i int, v Vector) error {
	if i < 0 || i >= len(c.inputs) {
		return fmt.Errorf("%w: input %d of %d", ErrPortOutOfRange, i, len(c.inputs))
	}
	if len(v) != c.inputs[i].size {
		return fmt.Errorf("%w: input %d size %d, got %d", ErrDimensionMismatch, i, c.inputs[i].size, len(v))
	}
	if c.inputs[i].value == nil {
		c.inputs[i].value = make(Vector, c.inputs[i].size)
	}
	copy(c.inputs[i].value, v)
	return nil
}

// Input returns the current value of input port i, or zeros if the port
// has never been fixed or resolved.
func (c *Context) Input(i int) Vector {
	if c.inputs[i].value == nil {
		return make(Vector, c.inputs[i].size)
	}
	return c.inputs[i].value.Clone()
}

func (c *Context) NumChildren() int { return len(c.children) }
func (c *Context) Child(i int) *Context { return c.children[i] }

// Clone deep-copies the context, children included. The clone shares no
// storage with the original.
func (c *Context) Clone() *Context {
	clone := &Context{
		time:   c.time,
		state:  c.state.Clone(),
		params: c.params.Clone(),
	}
	clone.inputs = make([]inputPort, len(c.inputs))
	for i, p := range c.inputs {
		clone.inputs[i] = inputPort{size: p.size}
		if p.value != nil {
			clone.inputs[i].value = p.value.Clone()
		}
	}
	if c.children != nil {
		clone.children = make([]*Context, len(c.children))
		for i, child := range c.children {
			clone.children[i] = child.Clone()
		}
	}
	return clone
}

// CopyFrom restores this context in place from a snapshot with the same
// shape. Callers holding a pointer to c keep a valid view.
func (c *Context) CopyFrom(o *Context) error {
	if len(c.state.Continuous) != len(o.state.Continuous) ||
		len(c.state.Discrete) != len(o.state.Discrete) ||
		len(c.inputs) != len(o.inputs) ||
		len(c.children) != len(o.children) {
		return fmt.Errorf("%w: context shapes differ", ErrDimensionMismatch)
	}
	c.time = o.time
	c.state = o.state.Clone()
	c.params = o.params.Clone()
	for i := range c.inputs {
		if o.inputs[i].value != nil {
			c.inputs[i].value = o.inputs[i].value.Clone()
		} else {
			c.inputs[i].value = nil
		}
	}
	for i := range c.children {
		if err := c.children[i].CopyFrom(o.children[i]); err != nil {
			return err
		}
	}
	return nil
}
