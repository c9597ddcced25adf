package viz

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/hybridsim/hybridsim/internal/hybrid"
	"github.com/hybridsim/hybridsim/internal/simulate"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	frameStep       = 1.0 / 30.0
	eventFlashTicks = 10
)

var (
	canvasStyle      = lipgloss.NewStyle().Padding(1, 2)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	eventStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	failStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model drives a live simulation: each animation tick runs the
// simulator forward by one frame's worth of simulated time, so witness
// isolation and event dispatch behave exactly as in a batch run.
type Model struct {
	sys       hybrid.System
	sim       *simulate.Simulator
	hctx      *hybrid.Context
	cfg       simulate.Config
	modelName string

	initState hybrid.Vector
	running   bool
	failure   string
	showHelp  bool

	canvas         *Canvas
	stateHistory   [][]float64
	witnessHistory []float64
	events         []simulate.EventRecord
	eventFlash     int
	steps          int

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
}

// NewModel initializes the live view. The context starts at time zero
// with the given continuous state.
func NewModel(sys hybrid.System, integ hybrid.Integrator, initState hybrid.Vector, cfg simulate.Config, modelName string) Model {
	params := make(map[string]float64)
	if c, ok := sys.(hybrid.Configurable); ok {
		for k, v := range c.GetParams() {
			params[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	initialParams := make(map[string]float64)
	for k, v := range params {
		keys = append(keys, k)
		if v == 0 {
			v = 1e-6
		}
		initialParams[k] = v
	}
	sort.Strings(keys)

	hctx := sys.AllocateContext()
	if len(initState) > 0 {
		hctx.SetContinuous(initState)
	}

	return Model{
		sys:            sys,
		sim:            simulate.New(sys, integ),
		hctx:           hctx,
		cfg:            cfg,
		modelName:      modelName,
		initState:      initState.Clone(),
		running:        true,
		canvas:         NewCanvas(width, height),
		stateHistory:   make([][]float64, 0, historyCapacity),
		witnessHistory: make([]float64, 0, historyCapacity),
		params:         params,
		initialParams:  initialParams,
		paramKeys:      keys,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.failure == "" {
			m.step()
		}
		if m.eventFlash > 0 {
			m.eventFlash--
		}
		m.draw()
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// step runs the simulator forward one frame of simulated time and folds
// the frame's trace into the view buffers.
func (m *Model) step() {
	target := m.hctx.Time() + frameStep
	result, err := m.sim.Run(context.Background(), m.hctx, target, m.cfg)
	if result != nil {
		m.steps += result.StepsTaken
		if len(result.Events) > 0 {
			m.events = append(m.events, result.Events...)
			m.eventFlash = eventFlashTicks
		}
	}
	if err != nil {
		m.failure = err.Error()
		m.running = false
		return
	}

	state := m.hctx.Continuous()
	m.stateHistory = append(m.stateHistory, state)
	if len(m.stateHistory) > historyCapacity {
		m.stateHistory = m.stateHistory[1:]
	}

	if ws := m.sys.Witnesses(m.hctx); len(ws) > 0 {
		m.witnessHistory = append(m.witnessHistory, ws[0].Eval(m.hctx))
		if len(m.witnessHistory) > historyCapacity {
			m.witnessHistory = m.witnessHistory[1:]
		}
	}
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	newVal := m.params[key] * factor
	m.params[key] = newVal
	if c, ok := m.sys.(hybrid.Configurable); ok {
		c.SetParam(key, newVal)
	}
}

// reset restores the initial state, time, and parameters.
func (m *Model) reset() {
	m.hctx = m.sys.AllocateContext()
	if len(m.initState) > 0 {
		m.hctx.SetContinuous(m.initState)
	}
	m.stateHistory = m.stateHistory[:0]
	m.witnessHistory = m.witnessHistory[:0]
	m.events = m.events[:0]
	m.eventFlash = 0
	m.steps = 0
	m.failure = ""
	m.running = true
	for k, v := range m.initialParams {
		m.params[k] = v
		if c, ok := m.sys.(hybrid.Configurable); ok {
			c.SetParam(k, v)
		}
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	switch m.modelName {
	case "bouncer":
		m.drawBouncer()
	case "thermostat":
		m.drawThermostat()
	default:
		m.drawSeries(0)
	}
}

// drawBouncer shows the ball above the floor with a trail of recent
// heights scrolling left.
func (m *Model) drawBouncer() {
	state := m.hctx.Continuous()
	if len(state) < 1 {
		return
	}
	cw, ch := m.canvas.SubWidth(), m.canvas.SubHeight()
	floorY := ch - 6
	m.canvas.HLine(floorY, 1)

	peak := 1.0
	for _, s := range m.stateHistory {
		peak = math.Max(peak, s[0])
	}
	scale := float64(floorY-4) / peak
	toY := func(h float64) int {
		return floorY - int(math.Max(0, h)*scale)
	}

	bx := cw / 2
	n := len(m.stateHistory)
	for i, s := range m.stateHistory {
		x := bx - (n - i)
		if x >= 0 {
			m.canvas.Set(x, toY(s[0]))
		}
	}

	m.canvas.Marker(bx, toY(state[0]))
	if m.eventFlash > 0 {
		m.canvas.EventTick(bx)
	}
}

// drawThermostat shows the temperature trace against the hysteresis
// band.
func (m *Model) drawThermostat() {
	if len(m.stateHistory) < 2 {
		return
	}
	ch := m.canvas.SubHeight()

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range m.stateHistory {
		lo = math.Min(lo, s[0])
		hi = math.Max(hi, s[0])
	}
	lo, hi = lo-0.5, hi+0.5

	toY := func(v float64) int {
		return ch - 4 - int((v-lo)/(hi-lo)*float64(ch-8))
	}

	// Band edges from the current parameters, when exposed.
	if low, ok := m.params["low"]; ok {
		m.canvas.HLine(toY(low), 4)
	}
	if high, ok := m.params["high"]; ok {
		m.canvas.HLine(toY(high), 4)
	}

	m.drawHistoryLine(toY)
}

// drawSeries plots one state component against time.
func (m *Model) drawSeries(component int) {
	if len(m.stateHistory) < 2 {
		return
	}
	ch := m.canvas.SubHeight()

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range m.stateHistory {
		if component >= len(s) {
			return
		}
		lo = math.Min(lo, s[component])
		hi = math.Max(hi, s[component])
	}
	if hi-lo < 1e-9 {
		hi = lo + 1
	}
	toY := func(v float64) int {
		return ch - 4 - int((v-lo)/(hi-lo)*float64(ch-8))
	}

	// Zero axis, when in range.
	if lo < 0 && hi > 0 {
		m.canvas.HLine(toY(0), 4)
	}

	m.drawHistoryLine(toY)
}

func (m *Model) drawHistoryLine(toY func(float64) int) {
	cw := m.canvas.SubWidth()
	n := len(m.stateHistory)
	prevX, prevY := -1, 0
	for i, s := range m.stateHistory {
		x := i * (cw - 1) / max(n-1, 1)
		y := toY(s[0])
		if prevX >= 0 {
			m.canvas.DrawLine(prevX, prevY, x, y)
		}
		prevX, prevY = x, y
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.modelName)) + "\n")

	status := "RUNNING"
	if m.failure != "" {
		status = failStyle.Render("FAILED: " + m.failure)
	} else if !m.running {
		status = "PAUSED"
	} else if m.eventFlash > 0 {
		status = eventStyle.Render("EVENT")
	}
	s.WriteString(status + "\n\n")

	if len(m.witnessHistory) > 1 {
		chart := asciigraph.Plot(m.witnessHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Witness"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.hctx.Time())) + "\n")
	s.WriteString(labelStyle.Render("Steps") + valueStyle.Render(fmt.Sprintf("%d", m.steps)) + "\n")
	s.WriteString(labelStyle.Render("Events") + valueStyle.Render(fmt.Sprintf("%d", len(m.events))) + "\n")

	s.WriteString("\nRECENT EVENTS\n")
	if len(m.events) == 0 {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	} else {
		start := len(m.events) - 3
		if start < 0 {
			start = 0
		}
		for _, ev := range m.events[start:] {
			s.WriteString("  " + valueStyle.Render(ev.String()) + "\n")
		}
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.params) > 0 {
		for i, k := range m.paramKeys {
			val, initial := m.params[k], m.initialParams[k]
			barWidth, ratio := 10, val/(2.0*initial)
			if ratio > 1 {
				ratio = 1
			} else if ratio < 0 {
				ratio = 0
			}
			filled := int(ratio * float64(barWidth))
			bar := "[" + strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled) + "]"
			line := fmt.Sprintf("%-12s %s %.3f", k, bar, val)
			if i == m.selected {
				s.WriteString(activeParamStyle.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + labelStyle.Render(line) + "\n")
			}
		}
	} else {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nTab/↑↓:Tune ?:Help"))
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset simulation         ║
║  Q        - Quit                     ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
