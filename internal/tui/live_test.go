package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/motionctl/internal/config"
	"github.com/san-kum/motionctl/internal/nav"
	"github.com/san-kum/motionctl/internal/robot"
)

func newModel(t *testing.T, cfg *config.Config) *Model {
	t.Helper()
	sim, err := robot.NewSimulation(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return NewModel(sim, cfg.InitialHeading)
}

func TestModelRunsToCompletion(t *testing.T) {
	m := newModel(t, config.DefaultConfig())
	m.speed = maxSpeed
	for i := 0; i < 1000 && !m.finished; i++ {
		m.Update(tickMsg{})
	}
	if !m.finished {
		t.Fatal("simulation did not finish")
	}
	if got := m.sim.Robot().Navigator.State(); got != nav.Done {
		t.Errorf("expected done, got %v", got)
	}
	if len(m.rpm) == 0 {
		t.Error("expected rpm history")
	}
	if v := m.View(); !strings.Contains(v, "DONE") {
		t.Errorf("view should show the final state:\n%s", v)
	}
}

func TestModelKeys(t *testing.T) {
	m := newModel(t, config.DefaultConfig())

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !m.paused {
		t.Fatal("space should pause")
	}
	m.Update(tickMsg{})
	if m.sim.Elapsed() != 0 {
		t.Error("paused model should not advance on tick")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if m.sim.Elapsed() != config.DefaultConfig().Dt() {
		t.Errorf("single step should advance one dt, got %v", m.sim.Elapsed())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	if m.speed != 8 {
		t.Errorf("expected speed 8, got %d", m.speed)
	}
	for i := 0; i < 10; i++ {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}})
	}
	if m.speed != 1 {
		t.Errorf("speed should floor at 1, got %d", m.speed)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
}

func TestModelResumesAfterObstacle(t *testing.T) {
	m := newModel(t, config.GetPreset("corridor"))
	m.speed = maxSpeed
	for i := 0; i < 1000 && !m.finished; i++ {
		m.Update(tickMsg{})
	}
	n := m.sim.Robot().Navigator
	if n.State() != nav.Stopped {
		t.Fatalf("expected obstacle stop, got %v", n.State())
	}
	if !strings.Contains(m.View(), "obstacle") {
		t.Error("view should show the stop cause")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if m.finished {
		t.Fatal("resume should restart the traversal")
	}
	for i := 0; i < 1000 && !m.finished; i++ {
		m.Update(tickMsg{})
	}
	if n.State() != nav.Done {
		t.Errorf("expected done after resume, got %v", n.State())
	}
}

func TestCanvasPolyline(t *testing.T) {
	c := newCanvas(4, 2)
	c.polyline([]point{{0, 0}, {1, 1}})
	out := c.String()
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected 2 rows, got %q", out)
	}
	if out == newCanvas(4, 2).String() {
		t.Error("expected dots on the canvas")
	}
}
