package simulate

import (
	"context"
	"fmt"
	"math"

	"github.com/hybridsim/hybridsim/internal/hybrid"
)

// Simulator drives a System+Context pair forward in time: it integrates
// continuous state, watches witness functions for qualifying sign
// changes, isolates crossing times by bisection, and dispatches the
// scheduled discrete events at the isolated instant.
//
// A Simulator is single-threaded and drives one trajectory at a time;
// run independent trajectories on independent Contexts.
type Simulator struct {
	sys       hybrid.System
	integ     hybrid.Integrator
	observers []hybrid.Observer
	status    Status
}

func New(sys hybrid.System, integ hybrid.Integrator) *Simulator {
	return &Simulator{sys: sys, integ: integ, status: Idle}
}

func (s *Simulator) AddObserver(o hybrid.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Status() Status { return s.status }

// Run advances hctx from its current time to endTime, mutating it in
// place. On any fatal condition hctx is left at the last committed time
// and the returned Result carries the failure reason; the error wraps
// the matching sentinel. Cancellation via ctx is checked between
// committed steps and retains partial progress.
func (s *Simulator) Run(ctx context.Context, hctx *hybrid.Context, endTime float64, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if endTime < hctx.Time() {
		return nil, fmt.Errorf("end time %f before context time %f", endTime, hctx.Time())
	}

	result := &Result{Outcome: Completed}
	result.Times = append(result.Times, hctx.Time())
	result.States = append(result.States, hctx.Continuous())

	witnesses := s.sys.Witnesses(hctx)
	w0, err := s.evalWitnesses(witnesses, hctx, result)
	if err != nil {
		return s.fail(result, hctx.Time(), err)
	}

	initialEnergy := s.energy(hctx)
	var recentEvents []float64

	for hctx.Time() < endTime {
		select {
		case <-ctx.Done():
			return s.fail(result, hctx.Time(), fmt.Errorf("%w: %v", hybrid.ErrCanceled, ctx.Err()))
		default:
		}

		s.status = Stepping
		t0 := hctx.Time()
		t1 := math.Min(t0+cfg.MaxStep, endTime)

		// The pre-step snapshot makes the step reversible until it is
		// accepted.
		pre := hctx.Clone()

		if err := s.advance(hctx, t1); err != nil {
			hctx.CopyFrom(pre)
			return s.fail(result, t0, err)
		}
		if cfg.ValidateState && !hctx.Continuous().IsValid() {
			hctx.CopyFrom(pre)
			return s.fail(result, t0, fmt.Errorf("%w: state after step to t=%.6f", hybrid.ErrInvalidState, t1))
		}

		w1, err := s.evalWitnesses(witnesses, hctx, result)
		if err != nil {
			hctx.CopyFrom(pre)
			return s.fail(result, t0, err)
		}

		triggered := candidates(witnesses, w0, w1)
		if len(triggered) == 0 {
			w0 = w1
			s.commit(hctx, result)
			continue
		}

		// One or more candidates triggered in (t0, t1]: discard the
		// tentative state and isolate the earliest crossing.
		s.status = IsolatingEvent
		tstar, wstar, err := s.isolate(pre, hctx, witnesses, w0, t0, t1, cfg.WitnessTolerance, result)
		if err != nil {
			hctx.CopyFrom(pre)
			return s.fail(result, t0, err)
		}

		s.status = Dispatching
		fired := candidates(witnesses, w0, wstar)
		for _, i := range fired {
			ev := hybrid.Event{Witness: witnesses[i], Action: witnesses[i].Action, Time: tstar}
			if err := s.sys.HandleEvent(ev, hctx); err != nil {
				return s.fail(result, tstar, fmt.Errorf("event %q: %w", witnesses[i].Name, err))
			}
			result.Events = append(result.Events, EventRecord{
				Time:      tstar,
				Witness:   witnesses[i].Name,
				Direction: witnesses[i].Direction,
				Action:    witnesses[i].Action,
			})
			recentEvents = append(recentEvents, tstar)
		}
		if cfg.ValidateState && !hctx.Continuous().IsValid() {
			return s.fail(result, tstar, fmt.Errorf("%w: state after event dispatch", hybrid.ErrInvalidState))
		}

		// Zeno guard over a sliding one-time-unit window.
		for len(recentEvents) > 0 && recentEvents[0] < tstar-1.0 {
			recentEvents = recentEvents[1:]
		}
		if len(recentEvents) > cfg.MaxEventsPerUnitTime {
			return s.fail(result, tstar,
				fmt.Errorf("%w: %d events within one time unit of t=%.6f", hybrid.ErrExcessiveEvents, len(recentEvents), tstar))
		}

		// Post-event sign snapshot, then resume toward endTime. The
		// reset map must move a fired witness off its triggered side:
		// a reference value left there masks any later crossing that
		// rises and falls again inside a single step.
		w0, err = s.evalWitnesses(witnesses, hctx, result)
		if err != nil {
			return s.fail(result, tstar, err)
		}
		s.commit(hctx, result)
	}

	if final := s.energy(hctx); initialEnergy != 0 {
		result.EnergyDrift = math.Abs(final-initialEnergy) / math.Abs(initialEnergy)
	}
	s.status = Done
	return result, nil
}

func validateConfig(cfg Config) error {
	if cfg.MaxStep <= 0 {
		return fmt.Errorf("max step must be positive, got %f", cfg.MaxStep)
	}
	if cfg.WitnessTolerance <= 0 {
		return fmt.Errorf("witness tolerance must be positive, got %f", cfg.WitnessTolerance)
	}
	if cfg.MaxEventsPerUnitTime <= 0 {
		return fmt.Errorf("max events per unit time must be positive, got %d", cfg.MaxEventsPerUnitTime)
	}
	return nil
}

// advance drives the integrator to target, re-invoking on partial steps.
func (s *Simulator) advance(hctx *hybrid.Context, target float64) error {
	for hctx.Time() < target {
		before := hctx.Time()
		reached, err := s.integ.Step(s.sys, hctx, target)
		if err != nil {
			return err
		}
		if reached <= before {
			return fmt.Errorf("%w: integrator stalled at t=%.6f", hybrid.ErrStepBudget, before)
		}
	}
	return nil
}

func (s *Simulator) commit(hctx *hybrid.Context, result *Result) {
	result.StepsTaken++
	result.Times = append(result.Times, hctx.Time())
	result.States = append(result.States, hctx.Continuous())
	for _, o := range s.observers {
		o.OnStep(hctx)
	}
}

// evalWitnesses evaluates every witness at the context's current state,
// rejecting non-finite values.
func (s *Simulator) evalWitnesses(witnesses []*hybrid.WitnessFunction, hctx *hybrid.Context, result *Result) ([]float64, error) {
	if len(witnesses) == 0 {
		return nil, nil
	}
	values := make([]float64, len(witnesses))
	for i, w := range witnesses {
		v := w.Eval(hctx)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %q at t=%.6f", hybrid.ErrWitnessValue, w.Name, hctx.Time())
		}
		values[i] = v
	}
	result.WitnessEvals += len(witnesses)
	return values, nil
}

// candidates returns the indexes of witnesses whose trigger condition
// matches the transition from before to after, in declaration order.
func candidates(witnesses []*hybrid.WitnessFunction, before, after []float64) []int {
	var out []int
	for i, w := range witnesses {
		if w.ShouldTrigger(before[i], after[i]) {
			out = append(out, i)
		}
	}
	return out
}

// isolate performs a bracketed bisection on [t0, t1] for the earliest
// qualifying crossing, to the configured absolute time tolerance. The
// invariant is that a crossing relative to the signs w0 at t0 lies in
// (lo, hi]. On return hctx has been re-integrated from the pre-step
// snapshot to the returned time, and the returned witness values are the
// values there.
func (s *Simulator) isolate(pre, hctx *hybrid.Context, witnesses []*hybrid.WitnessFunction, w0 []float64, t0, t1, tol float64, result *Result) (float64, []float64, error) {
	lo, hi := t0, t1
	for hi-lo > tol {
		mid := 0.5 * (lo + hi)
		probe := pre.Clone()
		if err := s.advance(probe, mid); err != nil {
			return 0, nil, err
		}
		wm, err := s.evalWitnesses(witnesses, probe, result)
		if err != nil {
			return 0, nil, err
		}
		if len(candidates(witnesses, w0, wm)) > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}

	// Accept the step exactly up to the right bracket endpoint, so the
	// dispatched state is on or just past the crossing. Witnesses that
	// trigger within tolerance of the same instant are all captured here
	// and dispatched together.
	if err := hctx.CopyFrom(pre); err != nil {
		return 0, nil, err
	}
	if err := s.advance(hctx, hi); err != nil {
		return 0, nil, err
	}
	wstar, err := s.evalWitnesses(witnesses, hctx, result)
	if err != nil {
		return 0, nil, err
	}
	return hi, wstar, nil
}

func (s *Simulator) energy(hctx *hybrid.Context) float64 {
	if er, ok := s.sys.(hybrid.EnergyReporter); ok {
		return er.Energy(hctx)
	}
	return 0
}

func (s *Simulator) fail(result *Result, t float64, err error) (*Result, error) {
	s.status = Failed
	result.Outcome = RunFailed
	result.FailureReason = err.Error()
	result.FailureTime = t
	return result, &hybrid.SimulationError{Step: result.StepsTaken, Time: t, Wrapped: err}
}
