package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/san-kum/motionctl/internal/clock"
	"github.com/san-kum/motionctl/internal/motor"
)

var ErrInvalidLoop = errors.New("control: invalid speed loop configuration")

// LoopConfig configures a SpeedLoop. Targets maps each regulated channel to
// its target speed in RPM; channels absent from the map are left alone.
type LoopConfig struct {
	Period    time.Duration
	BasePower int
	Variant   Variant
	Targets   map[motor.Channel]float64
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		Period:    300 * time.Millisecond,
		BasePower: 20,
		Variant:   PID,
		Targets:   map[motor.Channel]float64{motor.ChannelA: 35},
	}
}

func (c LoopConfig) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidLoop, c.Period)
	}
	if c.BasePower < motor.MinPower || c.BasePower > motor.MaxPower {
		return fmt.Errorf("%w: base power %d outside [%d, %d]", ErrInvalidLoop, c.BasePower, motor.MinPower, motor.MaxPower)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: no channels to regulate", ErrInvalidLoop)
	}
	for ch := range c.Targets {
		if !ch.Valid() {
			return fmt.Errorf("%w: %v", motor.ErrUnknownChannel, ch)
		}
	}
	return nil
}

// Channels returns the regulated channels in ascending order.
func (c LoopConfig) Channels() []motor.Channel {
	chs := make([]motor.Channel, 0, len(c.Targets))
	for ch := range c.Targets {
		chs = append(chs, ch)
	}
	sort.Slice(chs, func(i, j int) bool { return chs[i] < chs[j] })
	return chs
}

// Sample is one channel's reading and command for a single loop period.
type Sample struct {
	Channel   motor.Channel
	Time      time.Duration
	TargetRPM float64
	RPM       float64
	Delta     float64
	Power     int
}

type SampleObserver interface {
	OnSample(s Sample)
}

// RPM converts a rotation-count delta in degrees over period to RPM.
func RPM(deltaDegrees int64, period time.Duration) float64 {
	secs := period.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(deltaDegrees) / secs * 60 / 360
}

type LoopOption func(*SpeedLoop)

func WithLogger(l *log.Logger) LoopOption {
	return func(s *SpeedLoop) { s.logger = l }
}

func WithClock(src clock.Source) LoopOption {
	return func(s *SpeedLoop) { s.src = src }
}

func WithObserver(o SampleObserver) LoopOption {
	return func(s *SpeedLoop) { s.observers = append(s.observers, o) }
}

// SpeedLoop regulates motor speed on a fixed period.
type SpeedLoop struct {
	bank      *Bank
	motors    motor.Power
	cfg       LoopConfig
	src       clock.Source
	logger    *log.Logger
	observers []SampleObserver

	mu       sync.Mutex
	targets  map[motor.Channel]float64
	channels []motor.Channel
	counts   map[motor.Channel]int64
	primed   bool
}

func NewSpeedLoop(bank *Bank, motors motor.Power, cfg LoopConfig, opts ...LoopOption) (*SpeedLoop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &SpeedLoop{
		bank:    bank,
		motors:  motors,
		cfg:     cfg,
		src:     clock.NewSystem(),
		logger:  log.New(io.Discard, "", 0),
		targets: make(map[motor.Channel]float64, len(cfg.Targets)),
		counts:  make(map[motor.Channel]int64, len(cfg.Targets)),
	}
	l.channels = cfg.Channels()
	for _, ch := range l.channels {
		l.targets[ch] = cfg.Targets[ch]
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *SpeedLoop) Channels() []motor.Channel {
	out := make([]motor.Channel, len(l.channels))
	copy(out, l.channels)
	return out
}

func (l *SpeedLoop) SetTarget(ch motor.Channel, rpm float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.targets[ch]; !ok {
		return fmt.Errorf("%w: channel %v is not regulated", motor.ErrUnknownChannel, ch)
	}
	l.targets[ch] = rpm
	return nil
}

func (l *SpeedLoop) Target(ch motor.Channel) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.targets[ch]
}

// Prime records the current rotation counts as the baseline for the first
// period.
func (l *SpeedLoop) Prime() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.primeLocked()
}

func (l *SpeedLoop) primeLocked() error {
	for _, ch := range l.channels {
		n, err := l.motors.RotationCount(ch)
		if err != nil {
			return fmt.Errorf("read rotation count %v: %w", ch, err)
		}
		l.counts[ch] = n
	}
	l.primed = true
	return nil
}

// Step runs one loop period: sample, compute, actuate. The first call on an
// unprimed loop only records the baseline counts.
func (l *SpeedLoop) Step() ([]Sample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.primed {
		return nil, l.primeLocked()
	}

	now := l.src.Now()
	samples := make([]Sample, 0, len(l.channels))
	for _, ch := range l.channels {
		n, err := l.motors.RotationCount(ch)
		if err != nil {
			return samples, fmt.Errorf("read rotation count %v: %w", ch, err)
		}
		rpm := RPM(n-l.counts[ch], l.cfg.Period)
		l.counts[ch] = n

		target := l.targets[ch]
		delta := l.bank.Compute(ch, l.cfg.Variant, target, rpm)
		power := motor.ClampPower(l.cfg.BasePower + int(math.Round(delta)))
		if err := l.motors.SetPower(ch, power); err != nil {
			return samples, fmt.Errorf("set power %v: %w", ch, err)
		}

		samples = append(samples, Sample{
			Channel:   ch,
			Time:      now,
			TargetRPM: target,
			RPM:       rpm,
			Delta:     delta,
			Power:     power,
		})
	}

	for _, s := range samples {
		for _, o := range l.observers {
			o.OnSample(s)
		}
	}
	return samples, nil
}

// Run steps the loop every period until ctx is done, then cuts power on
// every regulated channel.
func (l *SpeedLoop) Run(ctx context.Context) error {
	defer l.stop()

	if err := l.Prime(); err != nil {
		return err
	}

	ticker := time.NewTicker(l.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		samples, err := l.Step()
		if err != nil {
			return err
		}
		for _, s := range samples {
			l.logger.Printf("speed %v: target=%.1f rpm=%.1f delta=%.2f power=%d",
				s.Channel, s.TargetRPM, s.RPM, s.Delta, s.Power)
		}
	}
}

func (l *SpeedLoop) stop() {
	for _, ch := range l.channels {
		if err := l.motors.SetPower(ch, 0); err != nil {
			l.logger.Printf("failed to stop channel %v: %v", ch, err)
		}
	}
}
