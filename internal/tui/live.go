// Package tui shows a simulated traversal live in the terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/motionctl/internal/export"
	"github.com/san-kum/motionctl/internal/nav"
	"github.com/san-kum/motionctl/internal/robot"
)

const (
	frame       = 33 * time.Millisecond
	historySize = 48
	maxSpeed    = 64
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frame, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model of a live traversal. Each frame advances
// the simulation by speed steps.
type Model struct {
	sim            *robot.Simulation
	initialHeading float64

	speed    int
	paused   bool
	finished bool
	err      error
	rpm      []float64
	power    int
	target   float64
	seen     int

	width, height int
}

func NewModel(sim *robot.Simulation, initialHeading float64) *Model {
	return &Model{
		sim:            sim,
		initialHeading: initialHeading,
		speed:          4,
		width:          80,
		height:         24,
	}
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(sim *robot.Simulation, initialHeading float64) error {
	_, err := tea.NewProgram(NewModel(sim, initialHeading), tea.WithAltScreen()).Run()
	return err
}

func (m *Model) Init() tea.Cmd { return tick() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		if !m.paused && !m.finished {
			m.advance(m.speed)
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "p":
		m.paused = !m.paused
	case "+", "=":
		m.speed = min(m.speed*2, maxSpeed)
	case "-", "_":
		m.speed = max(m.speed/2, 1)
	case "n":
		if m.paused {
			m.advance(1)
		}
	case "r":
		m.resume()
	}
	return m, nil
}

func (m *Model) advance(steps int) {
	for i := 0; i < steps; i++ {
		more, err := m.sim.Step()
		if err != nil {
			m.err = err
			m.finished = true
			break
		}
		if !more {
			m.finished = true
			break
		}
	}
	m.collect()
}

func (m *Model) collect() {
	samples := m.sim.Trace().Samples()
	ch := m.sim.WheelChannel().String()
	for _, s := range samples[m.seen:] {
		if s.Channel != ch {
			continue
		}
		m.rpm = append(m.rpm, s.RPM)
		m.power = s.Power
		m.target = s.TargetRPM
	}
	m.seen = len(samples)
	if len(m.rpm) > historySize {
		m.rpm = m.rpm[len(m.rpm)-historySize:]
	}
}

// resume clears whatever stopped the rover and continues the traversal.
func (m *Model) resume() {
	n := m.sim.Robot().Navigator
	if n.State() != nav.Stopped {
		return
	}
	m.sim.Rover().ClearObstacle()
	if err := n.Resume(); err != nil {
		m.err = err
		return
	}
	m.finished = false
}

func (m *Model) View() string {
	snap := m.sim.Robot().Navigator.Snapshot()
	heading, odo := m.sim.Rover().Pose()

	header := title.Render("motionctl live") + "  " + stateBadge(snap.State.String()) +
		"  " + label.Render(fmt.Sprintf("t=%.2fs  x%d", m.sim.Elapsed().Seconds(), m.speed))
	if m.paused {
		header += "  " + hint.Render("paused")
	}

	navLines := []string{
		field("step    ", fmt.Sprintf("%d/%d", snap.CurrentStep, snap.PathLength)),
		field("heading ", fmt.Sprintf("%5.1f° -> %5.1f°", snap.ActualDirection, snap.TargetDirection)),
		field("distance", fmt.Sprintf("%d / %d mm", snap.ActualDistance, snap.TargetDistance)),
		field("turning ", fmt.Sprintf("%v (%d corrections)", snap.IsTurning, snap.Corrections)),
		field("stop    ", snap.StopCause.String()),
		field("body    ", fmt.Sprintf("%.1f° %.0f mm", heading, odo)),
	}
	speedLines := []string{
		field("target", fmt.Sprintf("%.1f rpm", m.target)),
		field("rpm   ", fmt.Sprintf("%.1f", last(m.rpm))),
		field("power ", fmt.Sprintf("%d%%", m.power)),
		sparkline(m.rpm, m.target, 1, historySize/2),
	}

	left := panel.Render(strings.Join(navLines, "\n"))
	right := panel.Render(strings.Join(speedLines, "\n"))
	top := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	cw := max(m.width-4, 20)
	ch := max(m.height-lipgloss.Height(top)-6, 4)
	c := newCanvas(cw, ch)
	var pts []point
	for _, p := range export.Track(m.sim.Trace().Events(), m.initialHeading) {
		pts = append(pts, point{p.X, p.Y})
	}
	c.polyline(pts)

	footer := hint.Render("space pause · n step · +/- speed · r resume · q quit")
	if m.err != nil {
		footer = stateStyles["stopped"].Render(m.err.Error())
	} else if m.finished {
		footer = hint.Render("finished · q quit") + "  " + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, top, track.Render(c.String()), footer)
}

func last(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[len(v)-1]
}
