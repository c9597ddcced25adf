package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/hybridsim/hybridsim/internal/simulate"
)

type exportEvent struct {
	Time      float64 `json:"time"`
	Witness   string  `json:"witness"`
	Direction string  `json:"direction"`
	Action    string  `json:"action"`
}

type ExportData struct {
	Model        string        `json:"model"`
	Integrator   string        `json:"integrator"`
	Duration     float64       `json:"duration"`
	Outcome      string        `json:"outcome"`
	Steps        int           `json:"steps"`
	Times        []float64     `json:"times"`
	States       [][]float64   `json:"states"`
	Events       []exportEvent `json:"events"`
	WitnessEvals int           `json:"witness_evals"`
	EnergyDrift  float64       `json:"energy_drift"`
}

func buildExport(model, integrator string, duration float64, result *simulate.Result) ExportData {
	data := ExportData{
		Model:        model,
		Integrator:   integrator,
		Duration:     duration,
		Outcome:      result.Outcome.String(),
		Steps:        result.StepsTaken,
		Times:        result.Times,
		States:       make([][]float64, len(result.States)),
		Events:       make([]exportEvent, len(result.Events)),
		WitnessEvals: result.WitnessEvals,
		EnergyDrift:  result.EnergyDrift,
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	for i, ev := range result.Events {
		data.Events[i] = exportEvent{
			Time:      ev.Time,
			Witness:   ev.Witness,
			Direction: ev.Direction.String(),
			Action:    ev.Action.String(),
		}
	}
	return data
}

func ExportJSON(path, model, integrator string, duration float64, result *simulate.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeExport(file, model, integrator, duration, result)
}

func ExportJSONStdout(model, integrator string, duration float64, result *simulate.Result) error {
	return writeExport(os.Stdout, model, integrator, duration, result)
}

func writeExport(w io.Writer, model, integrator string, duration float64, result *simulate.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildExport(model, integrator, duration, result))
}
