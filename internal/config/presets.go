package config

import "sort"

var Presets = map[string]map[string]*Config{
	"bouncer": {
		"drop": {
			Model: "bouncer", Integrator: "rk4", Duration: 5.0,
			MaxStep: 0.01, Tolerance: DefaultTolerance, MaxEventRate: 200,
			InitState: []float64{1.0, 0.0},
		},
		"lob": {
			Model: "bouncer", Integrator: "rk4", Duration: 8.0,
			MaxStep: 0.01, Tolerance: DefaultTolerance, MaxEventRate: 200,
			InitState: []float64{0.5, 4.0},
		},
		"dead": {
			Model: "bouncer", Integrator: "rk4", Duration: 2.0,
			MaxStep: 0.01, Tolerance: DefaultTolerance, MaxEventRate: 50,
			InitState: []float64{1.0, 0.0},
			Params:    map[string]float64{"restitution": 0.3},
		},
	},
	"logistic": {
		"rise": {
			Model: "logistic", Integrator: "rk45", Duration: 4.0,
			MaxStep: 0.1, Tolerance: DefaultTolerance, MaxEventRate: DefaultMaxEventRate,
			InitState: []float64{-0.5},
		},
		"steep": {
			Model: "logistic", Integrator: "rk45", Duration: 3.0,
			MaxStep: 0.05, Tolerance: DefaultTolerance, MaxEventRate: DefaultMaxEventRate,
			InitState: []float64{-0.9},
			Params:    map[string]float64{"alpha": 3.0},
		},
	},
	"thermostat": {
		"regulate": {
			Model: "thermostat", Integrator: "rk4", Duration: 30.0,
			MaxStep: 0.1, Tolerance: DefaultTolerance, MaxEventRate: DefaultMaxEventRate,
			InitState: []float64{20.0},
		},
		"coldstart": {
			Model: "thermostat", Integrator: "rk4", Duration: 30.0,
			MaxStep: 0.1, Tolerance: DefaultTolerance, MaxEventRate: DefaultMaxEventRate,
			InitState: []float64{10.0},
		},
	},
}

func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
