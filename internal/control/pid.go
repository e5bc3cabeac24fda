package control

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/san-kum/motionctl/internal/clock"
	"github.com/san-kum/motionctl/internal/motor"
)

var (
	ErrUnknownVariant = errors.New("control: unknown controller variant")
	ErrUnknownParam   = errors.New("control: unknown parameter")
)

// Variant selects which terms a Compute call includes.
type Variant int

const (
	P Variant = iota
	PI
	PD
	PID
)

func (v Variant) String() string {
	switch v {
	case P:
		return "p"
	case PI:
		return "pi"
	case PD:
		return "pd"
	case PID:
		return "pid"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p":
		return P, nil
	case "pi":
		return PI, nil
	case "pd":
		return PD, nil
	case "pid":
		return PID, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

func (v Variant) integral() bool   { return v == PI || v == PID }
func (v Variant) derivative() bool { return v == PD || v == PID }

// Gains are shared by every channel of a Bank. IntegralLimit bounds the
// magnitude of the integral accumulator; zero leaves it unbounded.
type Gains struct {
	Kp            float64
	Ki            float64
	Kd            float64
	IntegralLimit float64
}

// Terms are the individual contributions of the last Compute call.
type Terms struct {
	P, I, D float64
}

func (t Terms) Sum() float64 {
	return t.P + t.I + t.D
}

// ChannelState is the persistent controller state of one motor channel.
type ChannelState struct {
	mu       sync.Mutex
	integral float64
	prevErr  float64
	watch    *clock.Stopwatch
	last     Terms
}

type Bank struct {
	gainsMu sync.RWMutex
	gains   Gains

	channels [motor.NumChannels]*ChannelState
}

func NewBank(gains Gains, src clock.Source) *Bank {
	b := &Bank{gains: gains}
	for i := range b.channels {
		b.channels[i] = &ChannelState{watch: clock.NewStopwatch(src)}
	}
	return b
}

func (b *Bank) channel(ch motor.Channel) *ChannelState {
	if !ch.Valid() {
		panic(fmt.Sprintf("control: invalid channel %d", int(ch)))
	}
	return b.channels[ch]
}

// Proportional is the stateless P term.
func (b *Bank) Proportional(target, current float64) float64 {
	return (target - current) * b.Gains().Kp
}

// Compute returns the power delta for ch. Every call, whatever the variant,
// restarts the channel's interval timer and records the error as the
// previous error for the next derivative.
func (b *Bank) Compute(ch motor.Channel, v Variant, target, current float64) float64 {
	s := b.channel(ch)
	g := b.Gains()

	s.mu.Lock()
	defer s.mu.Unlock()

	e := target - current
	dt := s.watch.Lap().Seconds()

	terms := Terms{P: e * g.Kp}

	if v.integral() {
		s.integral += e * dt
		if g.IntegralLimit > 0 {
			if s.integral > g.IntegralLimit {
				s.integral = g.IntegralLimit
			} else if s.integral < -g.IntegralLimit {
				s.integral = -g.IntegralLimit
			}
		}
		terms.I = g.Ki * s.integral
	}

	if v.derivative() && dt > 0 {
		terms.D = g.Kd * (e - s.prevErr) / dt
	}

	s.prevErr = e
	s.last = terms
	return terms.Sum()
}

func (b *Bank) Terms(ch motor.Channel) Terms {
	s := b.channel(ch)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (b *Bank) Integral(ch motor.Channel) float64 {
	s := b.channel(ch)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.integral
}

// Reset clears the accumulated state of ch so the next Compute behaves like
// the first one.
func (b *Bank) Reset(ch motor.Channel) {
	s := b.channel(ch)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integral = 0
	s.prevErr = 0
	s.last = Terms{}
	s.watch.Reset()
}

func (b *Bank) Gains() Gains {
	b.gainsMu.RLock()
	defer b.gainsMu.RUnlock()
	return b.gains
}

// GetParams returns tunable parameters for live adjustment.
func (b *Bank) GetParams() map[string]float64 {
	g := b.Gains()
	return map[string]float64{
		"Kp":            g.Kp,
		"Ki":            g.Ki,
		"Kd":            g.Kd,
		"IntegralLimit": g.IntegralLimit,
	}
}

func (b *Bank) SetParam(name string, value float64) error {
	b.gainsMu.Lock()
	defer b.gainsMu.Unlock()
	switch name {
	case "Kp":
		b.gains.Kp = value
	case "Ki":
		b.gains.Ki = value
	case "Kd":
		b.gains.Kd = value
	case "IntegralLimit":
		b.gains.IntegralLimit = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return nil
}
