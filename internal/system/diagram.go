package system

import (
	"fmt"

	"github.com/hybridsim/hybridsim/internal/hybrid"
)

type portRef struct {
	child int
	port  int
}

type connection struct {
	src portRef // output port
	dst portRef // input port
}

// DiagramBuilder collects child systems, internal connections, and
// exported ports, then validates the whole configuration at Build. All
// configuration errors surface here, never at simulation time.
type DiagramBuilder struct {
	name        string
	children    []hybrid.System
	connections []connection
	exportedIn  []portRef
	exportedOut []portRef
}

func NewDiagramBuilder(name string) *DiagramBuilder {
	return &DiagramBuilder{name: name}
}

// Add appends a child system and returns its index. The diagram takes
// exclusive ownership; declaration order fixes derivative concatenation
// and witness dispatch order.
func (b *DiagramBuilder) Add(sys hybrid.System) int {
	b.children = append(b.children, sys)
	return len(b.children) - 1
}

// Connect wires child srcChild's output port srcPort into child
// dstChild's input port dstPort.
func (b *DiagramBuilder) Connect(srcChild, srcPort, dstChild, dstPort int) {
	b.connections = append(b.connections, connection{
		src: portRef{child: srcChild, port: srcPort},
		dst: portRef{child: dstChild, port: dstPort},
	})
}

// ExportInput exposes a child input port as an input of the diagram and
// returns the diagram-level port index.
func (b *DiagramBuilder) ExportInput(child, port int) int {
	b.exportedIn = append(b.exportedIn, portRef{child: child, port: port})
	return len(b.exportedIn) - 1
}

// ExportOutput exposes a child output port as an output of the diagram
// and returns the diagram-level port index.
func (b *DiagramBuilder) ExportOutput(child, port int) int {
	b.exportedOut = append(b.exportedOut, portRef{child: child, port: port})
	return len(b.exportedOut) - 1
}

// Build validates the configuration and produces the Diagram.
func (b *DiagramBuilder) Build() (*Diagram, error) {
	if err := b.validatePorts(); err != nil {
		return nil, err
	}
	if err := b.validateInputs(); err != nil {
		return nil, err
	}
	order, err := b.topoOrder()
	if err != nil {
		return nil, err
	}
	return &Diagram{
		name:        b.name,
		children:    b.children,
		connections: b.connections,
		exportedIn:  b.exportedIn,
		exportedOut: b.exportedOut,
		order:       order,
	}, nil
}

func (b *DiagramBuilder) validatePorts() error {
	checkOut := func(r portRef) error {
		if r.child < 0 || r.child >= len(b.children) {
			return fmt.Errorf("%w: child %d of %d in diagram %q", hybrid.ErrPortOutOfRange, r.child, len(b.children), b.name)
		}
		if r.port < 0 || r.port >= b.children[r.child].NumOutputs() {
			return fmt.Errorf("%w: output %d of %s", hybrid.ErrPortOutOfRange, r.port, b.children[r.child].Name())
		}
		return nil
	}
	checkIn := func(r portRef) error {
		if r.child < 0 || r.child >= len(b.children) {
			return fmt.Errorf("%w: child %d of %d in diagram %q", hybrid.ErrPortOutOfRange, r.child, len(b.children), b.name)
		}
		if r.port < 0 || r.port >= b.children[r.child].NumInputs() {
			return fmt.Errorf("%w: input %d of %s", hybrid.ErrPortOutOfRange, r.port, b.children[r.child].Name())
		}
		return nil
	}

	for _, c := range b.connections {
		if err := checkOut(c.src); err != nil {
			return err
		}
		if err := checkIn(c.dst); err != nil {
			return err
		}
		srcSize := b.children[c.src.child].OutputSize(c.src.port)
		dstSize := b.children[c.dst.child].InputSize(c.dst.port)
		if srcSize != dstSize {
			return fmt.Errorf("%w: %s output %d (size %d) -> %s input %d (size %d)",
				hybrid.ErrDimensionMismatch,
				b.children[c.src.child].Name(), c.src.port, srcSize,
				b.children[c.dst.child].Name(), c.dst.port, dstSize)
		}
	}
	for _, r := range b.exportedIn {
		if err := checkIn(r); err != nil {
			return err
		}
	}
	for _, r := range b.exportedOut {
		if err := checkOut(r); err != nil {
			return err
		}
	}
	return nil
}

// validateInputs requires every child input port to have exactly one
// source: an internal connection or an exported diagram input.
func (b *DiagramBuilder) validateInputs() error {
	sources := make(map[portRef]int)
	for _, c := range b.connections {
		sources[c.dst]++
	}
	for _, r := range b.exportedIn {
		sources[r]++
	}
	for i, child := range b.children {
		for p := 0; p < child.NumInputs(); p++ {
			n := sources[portRef{child: i, port: p}]
			if n == 0 {
				return fmt.Errorf("%w: %s input %d", hybrid.ErrUnconnectedInput, child.Name(), p)
			}
			if n > 1 {
				return fmt.Errorf("%w: %s input %d has %d sources", hybrid.ErrDimensionMismatch, child.Name(), p, n)
			}
		}
	}
	return nil
}

// topoOrder orders children so that every connection source is evaluated
// before its destination. A cycle in the connection graph is a
// configuration error.
func (b *DiagramBuilder) topoOrder() ([]int, error) {
	n := len(b.children)
	adj := make([][]int, n)
	indeg := make([]int, n)
	seen := make(map[[2]int]bool)
	for _, c := range b.connections {
		edge := [2]int{c.src.child, c.dst.child}
		if edge[0] == edge[1] {
			return nil, fmt.Errorf("%w: %s feeds itself", hybrid.ErrConnectionCycle, b.children[edge[0]].Name())
		}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		adj[edge[0]] = append(adj[edge[0]], edge[1])
		indeg[edge[1]]++
	}

	// Kahn's algorithm; scanning in index order keeps the result
	// deterministic.
	order := make([]int, 0, n)
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		order = append(order, v)
		for _, w := range adj[v] {
			indeg[w]--
			if indeg[w] == 0 {
				ready = append(ready, w)
			}
		}
	}
	if len(order) != n {
		return nil, fmt.Errorf("%w: diagram %q", hybrid.ErrConnectionCycle, b.name)
	}
	return order, nil
}

// Diagram is a System composed of child systems connected via explicit
// ports, itself simulable as a single System. Its context is the disjoint
// union of its children's contexts.
type Diagram struct {
	name        string
	children    []hybrid.System
	connections []connection
	exportedIn  []portRef
	exportedOut []portRef
	order       []int

	witnesses []*hybrid.WitnessFunction
	route     map[*hybrid.WitnessFunction]routeEntry
}

type routeEntry struct {
	child   int
	witness *hybrid.WitnessFunction
}

func (d *Diagram) Name() string { return d.name }

func (d *Diagram) ContinuousStateSize() int {
	n := 0
	for _, c := range d.children {
		n += c.ContinuousStateSize()
	}
	return n
}

func (d *Diagram) NumInputs() int  { return len(d.exportedIn) }
func (d *Diagram) NumOutputs() int { return len(d.exportedOut) }

func (d *Diagram) InputSize(i int) int {
	r := d.exportedIn[i]
	return d.children[r.child].InputSize(r.port)
}

func (d *Diagram) OutputSize(i int) int {
	r := d.exportedOut[i]
	return d.children[r.child].OutputSize(r.port)
}

func (d *Diagram) AllocateContext() *hybrid.Context {
	children := make([]*hybrid.Context, len(d.children))
	for i, c := range d.children {
		children[i] = c.AllocateContext()
	}
	sizes := make([]int, len(d.exportedIn))
	for i := range d.exportedIn {
		sizes[i] = d.InputSize(i)
	}
	return hybrid.NewDiagramContext(children, sizes)
}

// resolveInputs pushes exported diagram inputs and internal connection
// values into child input ports, evaluating children in topological
// order. The written values are port caches, not integrated state.
func (d *Diagram) resolveInputs(ctx *hybrid.Context) error {
	for i, r := range d.exportedIn {
		if err := ctx.Child(r.child).FixInput(r.port, ctx.Input(i)); err != nil {
			return err
		}
	}

	outputs := make(map[int][]hybrid.Vector)
	for _, v := range d.order {
		for _, c := range d.connections {
			if c.dst.child != v {
				continue
			}
			outs, ok := outputs[c.src.child]
			if !ok {
				var err error
				outs, err = d.children[c.src.child].Outputs(ctx.Child(c.src.child))
				if err != nil {
					return err
				}
				outputs[c.src.child] = outs
			}
			if err := ctx.Child(c.dst.child).FixInput(c.dst.port, outs[c.src.port]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Derivatives concatenates the children's derivatives in declaration
// order after resolving internal port connections.
func (d *Diagram) Derivatives(ctx *hybrid.Context) (hybrid.Vector, error) {
	if err := d.resolveInputs(ctx); err != nil {
		return nil, err
	}
	out := make(hybrid.Vector, 0, d.ContinuousStateSize())
	for i, c := range d.children {
		dv, err := c.Derivatives(ctx.Child(i))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name(), err)
		}
		if len(dv) != c.ContinuousStateSize() {
			return nil, fmt.Errorf("%w: %s derivatives size %d, declared %d",
				hybrid.ErrDimensionMismatch, c.Name(), len(dv), c.ContinuousStateSize())
		}
		out = append(out, dv...)
	}
	return out, nil
}

// Outputs forwards the designated child ports per the export table.
func (d *Diagram) Outputs(ctx *hybrid.Context) ([]hybrid.Vector, error) {
	if err := d.resolveInputs(ctx); err != nil {
		return nil, err
	}
	result := make([]hybrid.Vector, len(d.exportedOut))
	for i, r := range d.exportedOut {
		outs, err := d.children[r.child].Outputs(ctx.Child(r.child))
		if err != nil {
			return nil, err
		}
		result[i] = outs[r.port]
	}
	return result, nil
}

// Witnesses returns the concatenation of the children's witnesses in
// declaration order. Each returned witness evaluates against the owning
// child's context, navigating by child index so clones of the diagram
// context work transparently.
func (d *Diagram) Witnesses(ctx *hybrid.Context) []*hybrid.WitnessFunction {
	if d.witnesses == nil {
		d.route = make(map[*hybrid.WitnessFunction]routeEntry)
		d.witnesses = make([]*hybrid.WitnessFunction, 0)
		for i, c := range d.children {
			child := i
			for _, cw := range c.Witnesses(ctx.Child(i)) {
				cw := cw
				wrapped := &hybrid.WitnessFunction{
					Name:      c.Name() + "." + cw.Name,
					Direction: cw.Direction,
					Action:    cw.Action,
					Eval: func(parent *hybrid.Context) float64 {
						return cw.Eval(parent.Child(child))
					},
				}
				d.route[wrapped] = routeEntry{child: child, witness: cw}
				d.witnesses = append(d.witnesses, wrapped)
			}
		}
	}
	return d.witnesses
}

// HandleEvent routes the event to the child that owns the witness.
func (d *Diagram) HandleEvent(ev hybrid.Event, ctx *hybrid.Context) error {
	entry, ok := d.route[ev.Witness]
	if !ok {
		return fmt.Errorf("diagram %q: event for unknown witness %q", d.name, ev.Witness.Name)
	}
	childEv := hybrid.Event{Witness: entry.witness, Action: ev.Action, Time: ev.Time}
	return d.children[entry.child].HandleEvent(childEv, ctx.Child(entry.child))
}
