package hybrid

// System is the unit of simulable behavior. Leaf systems supply their
// derivative rule directly; diagrams delegate to an ordered collection of
// child systems plus a port-connection table resolved at build time.
type System interface {
	Name() string

	// ContinuousStateSize is the total size of the continuous state this
	// system integrates, children included for diagrams.
	ContinuousStateSize() int

	NumInputs() int
	NumOutputs() int

	// InputSize and OutputSize report the declared width of a port, so
	// size mismatches surface when a diagram is built rather than when it
	// is simulated.
	InputSize(i int) int
	OutputSize(i int) int

	// AllocateContext creates a fresh default context whose shape matches
	// the system's declarations. The caller owns the result exclusively.
	AllocateContext() *Context

	// Derivatives computes the time derivative of the continuous state.
	// It must be a pure function of ctx and must not mutate it. For a
	// diagram the result is the concatenation of children's derivatives
	// in declaration order, computed after resolving internal port
	// connections.
	Derivatives(ctx *Context) (Vector, error)

	// Outputs evaluates all output ports. Pure function of ctx.
	Outputs(ctx *Context) ([]Vector, error)

	// Witnesses returns the active witness functions in a fixed,
	// deterministic order. For a diagram this is the concatenation of the
	// children's witnesses, each still evaluated against its own child
	// context.
	Witnesses(ctx *Context) []*WitnessFunction

	// HandleEvent is invoked by the simulator exactly once per triggered
	// event, at the isolated trigger time. Handlers may mutate discrete
	// and continuous state but never time.
	HandleEvent(ev Event, ctx *Context) error
}

// Integrator advances ctx.Time and the continuous state toward target.
// It returns the time actually reached; a result short of target means
// an internal step-size policy forced a partial step and the caller must
// re-invoke. Integrators never move time past target and are root-
// agnostic: proposing steps that respect witness crossings is the
// simulator's job.
type Integrator interface {
	Step(sys System, ctx *Context, target float64) (float64, error)
}

// Observer is notified after each committed simulation step.
type Observer interface {
	OnStep(ctx *Context)
}

// Configurable exposes named numeric parameters for runtime adjustment.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// EnergyReporter is implemented by systems with a meaningful scalar
// energy, used for drift reporting.
type EnergyReporter interface {
	Energy(ctx *Context) float64
}
