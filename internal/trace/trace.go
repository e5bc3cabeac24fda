// Package trace keeps an in-memory timeline of a traversal: navigator
// transitions, motion commands, sensor events and speed-loop samples.
package trace

import (
	"sync"
	"time"

	"github.com/san-kum/motionctl/internal/clock"
	"github.com/san-kum/motionctl/internal/control"
	"github.com/san-kum/motionctl/internal/dispatch"
	"github.com/san-kum/motionctl/internal/motor"
	"github.com/san-kum/motionctl/internal/nav"
	"github.com/san-kum/motionctl/internal/sensors"
)

type Transition struct {
	Time      time.Duration `json:"t_ns"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Step      int           `json:"step"`
	Heading   float64       `json:"heading"`
	Distance  int           `json:"distance_mm"`
	StopCause string        `json:"stop_cause"`
}

type Command struct {
	Time      time.Duration `json:"t_ns"`
	Kind      string        `json:"kind"`
	Distance  int           `json:"distance_mm,omitempty"`
	Direction float64       `json:"direction"`
	Rotation  string        `json:"rotation,omitempty"`
}

type Event struct {
	Time  time.Duration `json:"t_ns"`
	Kind  string        `json:"kind"`
	Value int           `json:"value"`
}

type Sample struct {
	Time      time.Duration `json:"t_ns"`
	Channel   string        `json:"channel"`
	TargetRPM float64       `json:"target_rpm"`
	RPM       float64       `json:"rpm"`
	Delta     float64       `json:"delta"`
	Power     int           `json:"power"`
}

// Trace is safe for concurrent use by the loop and dispatcher goroutines.
type Trace struct {
	src clock.Source

	mu          sync.Mutex
	transitions []Transition
	commands    []Command
	events      []Event
	samples     []Sample
}

func New(src clock.Source) *Trace {
	if src == nil {
		src = clock.NewSystem()
	}
	return &Trace{src: src}
}

func (t *Trace) OnTransition(from, to nav.State, s nav.Snapshot) {
	tr := Transition{
		Time:      t.src.Now(),
		From:      from.String(),
		To:        to.String(),
		Step:      s.CurrentStep,
		Heading:   s.ActualDirection,
		Distance:  s.ActualDistance,
		StopCause: s.StopCause.String(),
	}
	t.mu.Lock()
	t.transitions = append(t.transitions, tr)
	t.mu.Unlock()
}

func (t *Trace) OnSample(s control.Sample) {
	t.mu.Lock()
	t.samples = append(t.samples, Sample{
		Time:      s.Time,
		Channel:   s.Channel.String(),
		TargetRPM: s.TargetRPM,
		RPM:       s.RPM,
		Delta:     s.Delta,
		Power:     s.Power,
	})
	t.mu.Unlock()
}

func (t *Trace) command(c motor.Command) {
	cmd := Command{
		Time:      t.src.Now(),
		Kind:      c.Kind.String(),
		Distance:  c.Distance,
		Direction: c.Direction,
	}
	if c.Kind == motor.CmdStartTurn {
		cmd.Rotation = c.Rotation.String()
	}
	t.mu.Lock()
	t.commands = append(t.commands, cmd)
	t.mu.Unlock()
}

func (t *Trace) event(k sensors.Kind, v int) {
	t.mu.Lock()
	t.events = append(t.events, Event{Time: t.src.Now(), Kind: k.String(), Value: v})
	t.mu.Unlock()
}

// Motion returns a motor.Motion that records every command before
// forwarding it to next.
func (t *Trace) Motion(next motor.Motion) motor.Motion {
	return &tracedMotion{t: t, next: next}
}

// Handler returns a dispatch.Handler that records every delivered sensor
// event before forwarding it to next.
func (t *Trace) Handler(next dispatch.Handler) dispatch.Handler {
	return &tracedHandler{t: t, next: next}
}

func (t *Trace) Transitions() []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Transition(nil), t.transitions...)
}

func (t *Trace) Commands() []Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Command(nil), t.commands...)
}

func (t *Trace) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

func (t *Trace) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sample(nil), t.samples...)
}

type tracedMotion struct {
	t    *Trace
	next motor.Motion
}

func (m *tracedMotion) StartDrive(distanceMM int) {
	m.t.command(motor.Command{Kind: motor.CmdStartDrive, Distance: distanceMM})
	m.next.StartDrive(distanceMM)
}

func (m *tracedMotion) StopDrive(distanceMM int) {
	m.t.command(motor.Command{Kind: motor.CmdStopDrive, Distance: distanceMM})
	m.next.StopDrive(distanceMM)
}

func (m *tracedMotion) StartTurn(direction float64, rot motor.Rotation) {
	m.t.command(motor.Command{Kind: motor.CmdStartTurn, Direction: direction, Rotation: rot})
	m.next.StartTurn(direction, rot)
}

func (m *tracedMotion) StopTurn(direction float64) {
	m.t.command(motor.Command{Kind: motor.CmdStopTurn, Direction: direction})
	m.next.StopTurn(direction)
}

type tracedHandler struct {
	t    *Trace
	next dispatch.Handler
}

func (h *tracedHandler) OnDistanceDrivenChanged(distanceMM int) {
	h.t.event(sensors.DistanceDriven, distanceMM)
	h.next.OnDistanceDrivenChanged(distanceMM)
}

func (h *tracedHandler) OnDistanceIrChanged(distanceMM int) {
	h.t.event(sensors.DistanceIR, distanceMM)
	h.next.OnDistanceIrChanged(distanceMM)
}

func (h *tracedHandler) OnDirectionChanged(directionDeg int) {
	h.t.event(sensors.Direction, directionDeg)
	h.next.OnDirectionChanged(directionDeg)
}
