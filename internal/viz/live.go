package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/hydrostat/internal/control"
	"github.com/san-kum/hydrostat/internal/dynamo"
	"github.com/san-kum/hydrostat/internal/metrics"
	"github.com/san-kum/hydrostat/internal/physics"
	"github.com/san-kum/hydrostat/internal/sim"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	historyCapacity = 300
	frameRate       = 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model is the live view: it steps the simulator on every frame and draws
// the arm and its energy and constraint drift history.
type Model struct {
	sim  *sim.Simulator
	dyn  *physics.Hydrostat
	ke   *metrics.KineticEnergy
	x0   dynamo.State
	x    dynamo.State
	u    dynamo.Control
	t    float64
	dt   float64
	step int

	// StepsPerFrame ticks are run for every frame.
	StepsPerFrame int

	title   string
	canvas  *Canvas
	camera  *Camera
	running bool
	err     error

	keHistory    []float64
	driftHistory []float64

	manual *control.Manual
	sides  [][]int
	force  float64

	params    map[string]float64
	paramKeys []string
	selected  int
	showHelp  bool
}

func NewModel(s *sim.Simulator, dyn *physics.Hydrostat, x0 dynamo.State, dt float64, title string) Model {
	params := dyn.GetParams()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := Model{
		sim:           s,
		dyn:           dyn,
		ke:            metrics.NewKineticEnergy(dyn.Model().Masses),
		x0:            x0.Clone(),
		x:             x0.Clone(),
		u:             make(dynamo.Control, dyn.ControlDim()),
		dt:            dt,
		StepsPerFrame: 1,
		title:         title,
		canvas:        NewCanvas(canvasWidth, canvasHeight),
		camera:        NewCamera(),
		running:       true,
		keHistory:     make([]float64, 0, historyCapacity),
		driftHistory:  make([]float64, 0, historyCapacity),
		params:        params,
		paramKeys:     keys,
	}
	if pos, _, err := dyn.Unpack(x0); err == nil {
		m.camera.Fit(pos)
	}
	return m
}

// sideKeys maps the number keys to the arm side they contract.
var sideKeys = []mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}}

// WithManual lets keys 1-4 contract the axial edges of one arm side through
// c with the given tension. Key 0 releases every edge.
func (m Model) WithManual(c *control.Manual, tension float64) Model {
	m.manual = c
	m.force = tension
	m.sides = make([][]int, len(sideKeys))
	for i, side := range sideKeys {
		m.sides[i] = control.NewCurl(m.dyn.Model(), tension, side).Active()
	}
	return m
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Time() float64       { return m.t }
func (m Model) State() dynamo.State { return m.x }
func (m Model) Err() error          { return m.err }
func (m Model) Running() bool       { return m.running }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running && m.err == nil
		case ".":
			if !m.running {
				m.advance()
			}
		case "r":
			m.reset()
		case "tab":
			if len(m.paramKeys) > 0 {
				m.selected = (m.selected + 1) % len(m.paramKeys)
			}
		case "up", "k":
			m.adjustParam(1.1)
		case "down", "j":
			m.adjustParam(1 / 1.1)
		case "left", "h":
			m.camera.Rotate(-0.1, 0)
		case "right", "l":
			m.camera.Rotate(0.1, 0)
		case "w":
			m.camera.Rotate(0, 0.1)
		case "s":
			m.camera.Rotate(0, -0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "?":
			m.showHelp = !m.showHelp
		case "0", "1", "2", "3", "4":
			m.actuate(int(msg.String()[0] - '0'))
		}
	case TickMsg:
		if m.running {
			for i := 0; i < m.StepsPerFrame && m.err == nil; i++ {
				m.advance()
			}
		}
		return m, tick()
	}
	return m, nil
}

// advance runs one simulator tick. A failed tick stops the view and keeps
// the last good state on screen.
func (m *Model) advance() {
	next, u, err := m.sim.Step(m.x, m.t, m.dt)
	if err != nil {
		m.err = &dynamo.SimulationError{Step: m.step, Time: m.t, State: m.x.Clone(), Wrapped: err}
		m.running = false
		return
	}
	m.x, m.u = next, u
	m.step++
	m.t = float64(m.step) * m.dt

	m.keHistory = appendCapped(m.keHistory, m.ke.Of(m.x))
	drift, err := m.dyn.Violation(m.x)
	if err != nil {
		drift = 0
	}
	m.driftHistory = appendCapped(m.driftHistory, drift)
}

func appendCapped(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[len(h)-historyCapacity:]
	}
	return h
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key] * factor
	if err := m.dyn.SetParam(key, val); err == nil {
		m.params[key] = val
	}
}

func (m *Model) actuate(key int) {
	if m.manual == nil {
		return
	}
	all := make([]int, len(m.u))
	for i := range all {
		all[i] = i
	}
	m.manual.SetEdges(all, 0)
	if key > 0 && key <= len(m.sides) {
		m.manual.SetEdges(m.sides[key-1], m.force)
	}
}

func (m *Model) reset() {
	m.x = m.x0.Clone()
	m.u = make(dynamo.Control, m.dyn.ControlDim())
	m.t, m.step = 0, 0
	m.err = nil
	m.running = true
	m.keHistory = m.keHistory[:0]
	m.driftHistory = m.driftHistory[:0]
	m.actuate(0)
	for _, metric := range m.sim.Metrics() {
		metric.Reset()
	}
}

// draw projects every edge of the arm onto the canvas. Edges under
// actuation are drawn with markers at their midpoints.
func (m *Model) draw() {
	m.canvas.Clear()
	pos, _, err := m.dyn.Unpack(m.x)
	if err != nil {
		return
	}
	w, h := m.canvas.Dots()
	for e, edge := range m.dyn.Model().Topology.Edges {
		ax, ay, _ := m.camera.Project(pos[edge[0]], w, h)
		bx, by, _ := m.camera.Project(pos[edge[1]], w, h)
		m.canvas.DrawLine(ax, ay, bx, by)
		if e < len(m.u) && m.u[e] > 0 {
			mid := pos[edge[0]].Add(pos[edge[1]]).Mul(0.5)
			mx, my, _ := m.camera.Project(mid, w, h)
			m.canvas.DrawMarker(mx, my)
		}
	}
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return statusFailed.Render("FAILED")
	case m.running:
		return statusRunning.Render("RUNNING")
	default:
		return statusPaused.Render("PAUSED")
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3fs", m.t))
	row("Step", fmt.Sprintf("%d", m.step))
	row("Kinetic", fmt.Sprintf("%.4g", last(m.keHistory)))
	row("Drift", fmt.Sprintf("%.3g", last(m.driftHistory)))
	row("Vertices", fmt.Sprintf("%d", m.dyn.Model().NumVertices()))
	row("Constraints", strings.Join(kindNames(m.dyn), ", "))
	s.WriteString(labelStyle.Render("Actuation") + Sparkline(m.u, 30) + "\n")

	if len(m.keHistory) > 1 {
		s.WriteString("\n" + graphStyle.Render(asciigraph.Plot(m.keHistory,
			asciigraph.Height(4), asciigraph.Width(32), asciigraph.Caption("kinetic energy"))) + "\n")
	}
	if len(m.driftHistory) > 1 {
		s.WriteString("\n" + graphStyle.Render(asciigraph.Plot(m.driftHistory,
			asciigraph.Height(4), asciigraph.Width(32), asciigraph.Caption("constraint drift"))) + "\n")
	}

	s.WriteString("\nSOLVER\n")
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-15s %.4g", k, m.params[k])
		if i == m.selected {
			s.WriteString(activeStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}

	if m.err != nil {
		s.WriteString("\n" + statusFailed.Render(m.err.Error()) + "\n")
	}
	if m.showHelp {
		s.WriteString(helpStyle.Render("space pause  . step  r reset  q quit\ntab param  up/down tune\nh/l yaw  w/s pitch  +/- zoom\n1-4 contract side  0 release"))
	} else {
		s.WriteString(helpStyle.Render("? help"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, panelStyle.Render(s.String()))
}

func last(h []float64) float64 {
	if len(h) == 0 {
		return 0
	}
	return h[len(h)-1]
}

func kindNames(dyn *physics.Hydrostat) []string {
	kinds := dyn.Constraints().Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	if len(names) == 0 {
		return []string{"none"}
	}
	return names
}

// Run starts the live view in the alternate screen and blocks until the
// user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
