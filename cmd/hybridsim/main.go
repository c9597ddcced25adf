package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/hybridsim/hybridsim/internal/analysis"
	"github.com/hybridsim/hybridsim/internal/config"
	"github.com/hybridsim/hybridsim/internal/hybrid"
	"github.com/hybridsim/hybridsim/internal/integrators"
	"github.com/hybridsim/hybridsim/internal/models"
	"github.com/hybridsim/hybridsim/internal/simulate"
	"github.com/hybridsim/hybridsim/internal/storage"
	"github.com/hybridsim/hybridsim/internal/viz"
)

var (
	dataDir      string
	integrator   string
	duration     float64
	maxStep      float64
	tolerance    float64
	maxEventRate int
	initState    []float64
	configFile   string
	preset       string
	xAxis        int
	yAxis        int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hybridsim",
		Short: "hybrid dynamical system simulation lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".hybridsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a simulation and store the result",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range models.List() {
				fmt.Println(name)
			}
		},
	}

	eventsCmd := &cobra.Command{
		Use:   "events [run_id]",
		Short: "show a run's event log",
		Args:  cobra.ExactArgs(1),
		RunE:  showEvents,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stored trajectories",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run states to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run with live terminal visualization",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and event analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [model] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same model",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	compareCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	compareCmd.Flags().Float64Var(&maxStep, "max-step", config.DefaultMaxStep, "max step size")

	rootCmd.AddCommand(runCmd, listCmd, modelsCmd, eventsCmd, plotCmd, phaseCmd,
		exportCSVCmd, exportJSONCmd, liveCmd, presetsCmd, analyzeCmd, compareCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&maxStep, "max-step", config.DefaultMaxStep, "max step size")
	cmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "witness isolation tolerance")
	cmd.Flags().IntVar(&maxEventRate, "max-event-rate", config.DefaultMaxEventRate, "max events per unit time")
	cmd.Flags().Float64SliceVar(&initState, "state", nil, "initial continuous state")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig merges preset, config file, and flags into one run
// configuration. Flags the user set explicitly win.
func resolveConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		*cfg = *p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		*cfg = *loaded
		cfg.Model = model
	}

	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("max-step") {
		cfg.MaxStep = maxStep
	}
	if cmd.Flags().Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if cmd.Flags().Changed("max-event-rate") {
		cfg.MaxEventRate = maxEventRate
	}
	if cmd.Flags().Changed("state") {
		cfg.InitState = initState
	}
	if len(cfg.InitState) == 0 {
		cfg.InitState = models.DefaultState(model)
	}

	return cfg, cfg.Validate()
}

// buildRun assembles the system, integrator, and initial context for a
// run configuration.
func buildRun(cfg *config.Config) (hybrid.System, hybrid.Integrator, *hybrid.Context, error) {
	sys, err := models.New(cfg.Model)
	if err != nil {
		return nil, nil, nil, err
	}
	for name, value := range cfg.Params {
		c, ok := sys.(hybrid.Configurable)
		if !ok {
			return nil, nil, nil, fmt.Errorf("model %s has no tunable parameters", cfg.Model)
		}
		if err := c.SetParam(name, value); err != nil {
			return nil, nil, nil, err
		}
	}

	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, nil, nil, err
	}

	hctx := sys.AllocateContext()
	if len(cfg.InitState) > 0 {
		if err := hctx.SetContinuous(cfg.InitState); err != nil {
			return nil, nil, nil, err
		}
	}
	return sys, integ, hctx, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	sys, integ, hctx, err := buildRun(cfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s simulation...\n", cfg.Model)
	start := time.Now()

	sim := simulate.New(sys, integ)
	result, runErr := sim.Run(context.Background(), hctx, cfg.Duration, cfg.SimConfig())
	elapsed := time.Since(start)

	if result == nil {
		return runErr
	}

	runID, err := st.Save(cfg.Model, cfg.Integrator, cfg.MaxStep, cfg.Duration, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("outcome: %s\n", result.Outcome)
	if result.Outcome == simulate.RunFailed {
		fmt.Printf("failure: %s at t=%.6f\n", result.FailureReason, result.FailureTime)
	}
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("events: %d\n", len(result.Events))
	fmt.Printf("witness evals: %d\n", result.WitnessEvals)
	if result.EnergyDrift != 0 {
		fmt.Printf("energy drift: %.2e\n", result.EnergyDrift)
	}

	if len(result.Events) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tWITNESS\tDIRECTION\tACTION")
		for _, ev := range result.Events {
			fmt.Fprintf(w, "%.9f\t%s\t%s\t%s\n", ev.Time, ev.Witness, ev.Direction, ev.Action)
		}
		return w.Flush()
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tDURATION\tINTEG\tOUTCOME\tEVENTS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%s\t%s\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Integrator,
			run.Outcome,
			run.Events,
		)
	}
	return w.Flush()
}

func showEvents(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	events, err := st.LoadEvents(args[0])
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Println("no events in run")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tWITNESS\tDIRECTION\tACTION")
	for _, ev := range events {
		fmt.Fprintf(w, "%.9f\t%s\t%s\t%s\n", ev.Time, ev.Witness, ev.Direction, ev.Action)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	events, err := st.LoadEvents(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d, events: %d\n\n", len(states), len(events))

	numVars := len(states[0])
	if numVars > 6 {
		numVars = 6
	}

	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			if varIdx < len(states[i]) {
				data[i] = states[i][varIdx]
			}
		}

		caption := fmt.Sprintf("x%d vs time", varIdx)
		switch meta.Model {
		case "bouncer":
			if varIdx == 0 {
				caption = "height"
			} else if varIdx == 1 {
				caption = "velocity"
			}
		case "thermostat":
			if varIdx == 0 {
				caption = "temperature"
			}
		case "logistic":
			if varIdx == 0 {
				caption = "state"
			}
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if len(events) > 0 {
		fmt.Println("events:")
		for _, ev := range events {
			fmt.Printf("  %s\n", ev)
		}
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}
	if len(states[0]) <= xAxis || len(states[0]) <= yAxis {
		return fmt.Errorf("state dimension too small for selected axes")
	}

	fmt.Printf("phase space plot: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("x-axis: x%d, y-axis: x%d\n\n", xAxis, yAxis)

	xData := make([]float64, len(states))
	yData := make([]float64, len(states))
	for i := range states {
		xData[i] = states[i][xAxis]
		yData[i] = states[i][yAxis]
	}

	xMin, xMax := xData[0], xData[0]
	yMin, yMax := yData[0], yData[0]
	for i := range xData {
		if xData[i] < xMin {
			xMin = xData[i]
		}
		if xData[i] > xMax {
			xMax = xData[i]
		}
		if yData[i] < yMin {
			yMin = yData[i]
		}
		if yData[i] > yMax {
			yMax = yData[i]
		}
	}

	xRange := xMax - xMin
	yRange := yMax - yMin
	if xRange == 0 {
		xRange = 1
	}
	if yRange == 0 {
		yRange = 1
	}

	width := 70
	height := 20
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for i := range xData {
		px := int(float64(width-1) * (xData[i] - xMin) / xRange)
		py := int(float64(height-1) * (yData[i] - yMin) / yRange)
		py = height - 1 - py
		if px >= 0 && px < width && py >= 0 && py < height {
			if i < len(xData)/3 {
				canvas[py][px] = '.'
			} else if i < 2*len(xData)/3 {
				canvas[py][px] = 'o'
			} else {
				canvas[py][px] = '●'
			}
		}
	}

	fmt.Printf("  %.2f ┌%s┐\n", yMax, strings.Repeat("─", width))
	for i := range canvas {
		if i == height/2 {
			fmt.Printf("  %.2f │", (yMax+yMin)/2)
		} else {
			fmt.Print("       │")
		}
		fmt.Print(string(canvas[i]))
		fmt.Println("│")
	}
	fmt.Printf("  %.2f └%s┘\n", yMin, strings.Repeat("─", width))
	fmt.Printf("       %.2f%s%.2f\n", xMin, strings.Repeat(" ", width-20), xMax)
	fmt.Printf("\nLegend: . = early, o = middle, ● = late\n")

	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"time"}
	for i := range states[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range states {
		row := []string{strconv.FormatFloat(times[i], 'f', 6, 64)}
		for _, val := range states[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	events, err := st.LoadEvents(runID)
	if err != nil {
		return err
	}

	result := &simulate.Result{
		Times:        times,
		States:       make([]hybrid.Vector, len(states)),
		Events:       events,
		StepsTaken:   meta.Steps,
		WitnessEvals: meta.WitnessEvals,
		EnergyDrift:  meta.EnergyDrift,
	}
	if meta.Outcome == "failed" {
		result.Outcome = simulate.RunFailed
		result.FailureReason = meta.FailureReason
	}
	for i, s := range states {
		result.States[i] = s
	}

	return storage.ExportJSONStdout(meta.Model, meta.Integrator, meta.Duration, result)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 || len(states[0]) == 0 {
		return fmt.Errorf("no data")
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("model: %s\n\n", meta.Model)

	data := make([]float64, len(states))
	for i := range states {
		data[i] = states[i][0]
	}

	ps := analysis.PowerSpectrum(data)
	if len(ps) < 4 {
		return fmt.Errorf("run too short for spectral analysis")
	}

	graph := asciigraph.Plot(ps[:len(ps)/4],
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (x0)"),
	)
	fmt.Println(graph)
	fmt.Println()

	dt := meta.Duration / float64(len(data)-1)
	freq := analysis.DominantFrequency(ps, dt)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	events, err := st.LoadEvents(runID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("\nno events in run")
		return nil
	}
	times := make([]float64, len(events))
	for i, ev := range events {
		times[i] = ev.Time
	}
	stats := analysis.AnalyzeEvents(times, meta.Duration)
	fmt.Printf("\nevents: %d (%.2f per unit time)\n", stats.Count, stats.Rate)
	fmt.Printf("mean interval: %.6f s, min interval: %.6f s\n", stats.MeanInterval, stats.MinInterval)
	if stats.ShrinkRatio > 0 {
		fmt.Printf("interval shrink ratio: %.3f\n", stats.ShrinkRatio)
	}
	if stats.ZenoSuspected {
		fmt.Println("warning: geometrically accumulating events (Zeno-like)")
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	sys, integ, _, err := buildRun(cfg)
	if err != nil {
		return err
	}

	m := viz.NewModel(sys, integ, cfg.InitState, cfg.SimConfig(), cfg.Model)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	model := args[0]
	names := args[1:]

	initial := models.DefaultState(model)
	if initial == nil {
		return fmt.Errorf("unknown model %q", model)
	}

	fmt.Printf("comparing integrators for %s (max_step=%.4f, duration=%.1fs)\n\n", model, maxStep, duration)
	fmt.Printf("%-12s  %-12s  %-8s  %-12s  %-12s\n", "integrator", "final_x0", "events", "energy_drift", "time_ms")
	fmt.Println(strings.Repeat("-", 64))

	for _, name := range names {
		integ, err := integrators.New(name)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		sys, err := models.New(model)
		if err != nil {
			return err
		}
		hctx := sys.AllocateContext()
		if err := hctx.SetContinuous(initial); err != nil {
			return err
		}

		simCfg := simulate.DefaultConfig()
		simCfg.MaxStep = maxStep

		start := time.Now()
		sim := simulate.New(sys, integ)
		result, err := sim.Run(context.Background(), hctx, duration, simCfg)
		elapsed := time.Since(start)

		if err != nil && result == nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		finalX0 := 0.0
		if n := len(result.States); n > 0 && len(result.States[n-1]) > 0 {
			finalX0 = result.States[n-1][0]
		}

		fmt.Printf("%-12s  %12.6f  %8d  %12.2e  %12.2f\n",
			name, finalX0, len(result.Events), result.EnergyDrift, float64(elapsed.Microseconds())/1000)
	}
	return nil
}

