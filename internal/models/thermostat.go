package models

import (
	"fmt"

	"github.com/hybridsim/hybridsim/internal/hybrid"
	"github.com/hybridsim/hybridsim/internal/system"
)

// Thermostat is a relay-controlled heater. The continuous state is the
// room temperature; discrete group 0 holds the heater mode (0 off, 1
// on). Two directional witnesses implement the hysteresis band: falling
// through Low switches the heater on, rising through High switches it
// off, each via a discrete update.
type Thermostat struct {
	system.LeafBase
	Ambient float64
	Cooling float64
	Power   float64
	Low     float64
	High    float64

	cold *hybrid.WitnessFunction
	warm *hybrid.WitnessFunction
}

func NewThermostat() *Thermostat {
	th := &Thermostat{
		Ambient: 15.0,
		Cooling: 0.5,
		Power:   5.0,
		Low:     19.0,
		High:    21.0,
	}
	th.SetName("thermostat")
	th.DeclareContinuousState(1)
	th.DeclareDiscreteState(1)
	th.cold = &hybrid.WitnessFunction{
		Name:      "below-low",
		Direction: hybrid.BecomesNegative,
		Action:    hybrid.DiscreteUpdate,
		Eval: func(ctx *hybrid.Context) float64 {
			return ctx.Continuous()[0] - th.Low
		},
	}
	th.warm = &hybrid.WitnessFunction{
		Name:      "above-high",
		Direction: hybrid.BecomesPositive,
		Action:    hybrid.DiscreteUpdate,
		Eval: func(ctx *hybrid.Context) float64 {
			return ctx.Continuous()[0] - th.High
		},
	}
	return th
}

func (th *Thermostat) Derivatives(ctx *hybrid.Context) (hybrid.Vector, error) {
	temp := ctx.Continuous()[0]
	mode := ctx.Discrete(0)
	return hybrid.Vector{-th.Cooling*(temp-th.Ambient) + th.Power*mode[0]}, nil
}

func (th *Thermostat) Witnesses(ctx *hybrid.Context) []*hybrid.WitnessFunction {
	return []*hybrid.WitnessFunction{th.cold, th.warm}
}

func (th *Thermostat) HandleEvent(ev hybrid.Event, ctx *hybrid.Context) error {
	mode := ctx.Discrete(0)
	switch ev.Witness {
	case th.cold:
		mode[0] = 1
	case th.warm:
		mode[0] = 0
	default:
		return fmt.Errorf("thermostat: unexpected witness %q", ev.Witness.Name)
	}
	return ctx.SetDiscrete(0, mode)
}

func (th *Thermostat) GetParams() map[string]float64 {
	return map[string]float64{
		"ambient": th.Ambient,
		"cooling": th.Cooling,
		"power":   th.Power,
		"low":     th.Low,
		"high":    th.High,
	}
}

func (th *Thermostat) SetParam(name string, value float64) error {
	switch name {
	case "ambient":
		th.Ambient = value
	case "cooling":
		th.Cooling = value
	case "power":
		th.Power = value
	case "low":
		th.Low = value
	case "high":
		th.High = value
	default:
		return fmt.Errorf("thermostat: unknown parameter %q", name)
	}
	return nil
}
