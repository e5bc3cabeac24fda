package robot

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/motionctl/internal/clock"
	"github.com/san-kum/motionctl/internal/config"
	"github.com/san-kum/motionctl/internal/control"
	"github.com/san-kum/motionctl/internal/integrators"
	"github.com/san-kum/motionctl/internal/metrics"
	"github.com/san-kum/motionctl/internal/motor"
	"github.com/san-kum/motionctl/internal/nav"
	"github.com/san-kum/motionctl/internal/rover"
	"github.com/san-kum/motionctl/internal/sensors"
	"github.com/san-kum/motionctl/internal/trace"
)

// Result summarises a simulated traversal.
type Result struct {
	Outcome   nav.State
	StopCause nav.StopCause
	Final     nav.Snapshot
	Elapsed   time.Duration
	Steps     int
	Resumes   int
	TimedOut  bool
	Heading   float64
	Odometer  float64
	Metrics   map[string]float64
	Trace     *trace.Trace
}

// Simulation runs a Robot against a simulated rover and motor plant.
type Simulation struct {
	cfg     *config.Config
	clk     *clock.Manual
	board   *sensors.Board
	body    *rover.Rover
	plant   *rover.Plant
	robot   *Robot
	trace   *trace.Trace
	metrics *metrics.Set
	wheelCh motor.Channel

	dt          time.Duration
	period      time.Duration
	duration    time.Duration
	resumeAfter time.Duration

	started   bool
	nextLoop  time.Duration
	stoppedAt time.Duration
	steps     int
	resumes   int
}

func NewSimulation(cfg *config.Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	integ, _ := integrators.Get(cfg.Simulation.Integrator)
	lc, err := cfg.LoopConfig()
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:       cfg.Clone(),
		clk:       clock.NewManual(),
		board:     sensors.NewBoard(),
		dt:        cfg.Dt(),
		period:    lc.Period,
		duration:  time.Duration(cfg.Simulation.Duration * float64(time.Second)),
		stoppedAt: -1,
	}
	s.body, err = rover.New(cfg.RoverConfig(), s.board, cfg.InitialHeading)
	if err != nil {
		return nil, err
	}
	s.plant, err = rover.NewPlant(cfg.PlantConfig(), integ)
	if err != nil {
		return nil, err
	}

	s.wheelCh = lc.Channels()[0]
	s.trace = trace.New(s.clk)
	s.metrics = metrics.Standard(s.wheelCh)

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	s.resumeAfter = o.resumeAfter

	base := []Option{WithClock(s.clk), WithTrace(s.trace), WithSampleObserver(s.metrics)}
	s.robot, err = New(Parts{
		Board:  s.board,
		Motion: s.body,
		Motors: s.plant,
		Path:   cfg.Path,
		Nav:    cfg.NavConfig(),
		Gains:  cfg.Gains(),
		Loop:   lc,
	}, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulation) Robot() *Robot { return s.robot }

func (s *Simulation) Rover() *rover.Rover { return s.body }

func (s *Simulation) Plant() *rover.Plant { return s.plant }

func (s *Simulation) Trace() *trace.Trace { return s.trace }

func (s *Simulation) Metrics() *metrics.Set { return s.metrics }

func (s *Simulation) Elapsed() time.Duration { return s.clk.Now() }

// WheelChannel is the channel whose motor moves the rover forward.
func (s *Simulation) WheelChannel() motor.Channel { return s.wheelCh }

func (s *Simulation) start() error {
	s.started = true
	if err := s.robot.Loop.Prime(); err != nil {
		return err
	}
	s.nextLoop = s.period
	return s.robot.Navigator.Start(s.cfg.InitialHeading)
}

// Finished reports whether the traversal is over: done, stopped with no
// resume pending, or out of time.
func (s *Simulation) Finished() bool {
	if !s.started {
		return false
	}
	if s.clk.Now() >= s.duration {
		return true
	}
	switch s.robot.Navigator.State() {
	case nav.Done:
		return true
	case nav.Stopped:
		return s.resumeAfter <= 0
	}
	return false
}

// Step advances the simulation by one fixed step. It returns false once the
// traversal is finished.
func (s *Simulation) Step() (bool, error) {
	if !s.started {
		if err := s.start(); err != nil {
			return false, err
		}
	}
	if s.Finished() {
		return false, nil
	}

	s.clk.Advance(s.dt)
	now := s.clk.Now()
	dt := s.dt.Seconds()

	s.plant.Step(dt)
	if wheel := s.cfg.Rover.WheelMM; wheel > 0 {
		s.body.SetDriveSpeed(math.Max(0, s.plant.RPM(s.wheelCh)*wheel/60))
	}
	s.body.Step(dt)

	if now >= s.nextLoop {
		if _, err := s.robot.Loop.Step(); err != nil {
			return false, fmt.Errorf("speed loop at %v: %w", now, err)
		}
		s.nextLoop += s.period
	}
	s.robot.Dispatcher.Poll()
	s.steps++

	if err := s.maybeResume(now); err != nil {
		return false, err
	}
	return !s.Finished(), nil
}

func (s *Simulation) maybeResume(now time.Duration) error {
	if s.resumeAfter <= 0 {
		return nil
	}
	snap := s.robot.Navigator.Snapshot()
	if snap.State != nav.Stopped {
		return nil
	}
	if s.stoppedAt < 0 {
		s.stoppedAt = now
		return nil
	}
	if now-s.stoppedAt < s.resumeAfter {
		return nil
	}
	if snap.StopCause.Has(nav.StopObstacle) {
		s.body.ClearObstacle()
	}
	s.stoppedAt = -1
	s.resumes++
	return s.robot.Navigator.Resume()
}

// Run steps the simulation until it finishes or ctx is done.
func (s *Simulation) Run(ctx context.Context) (*Result, error) {
	for {
		select {
		case <-ctx.Done():
			return s.Result(), ctx.Err()
		default:
		}
		more, err := s.Step()
		if err != nil {
			return s.Result(), err
		}
		if !more {
			return s.Result(), nil
		}
	}
}

func (s *Simulation) Result() *Result {
	snap := s.robot.Navigator.Snapshot()
	heading, odo := s.body.Pose()
	return &Result{
		Outcome:   snap.State,
		StopCause: snap.StopCause,
		Final:     snap,
		Elapsed:   s.clk.Now(),
		Steps:     s.steps,
		Resumes:   s.resumes,
		TimedOut:  s.clk.Now() >= s.duration && snap.State != nav.Done,
		Heading:   heading,
		Odometer:  odo,
		Metrics:   s.metrics.Values(),
		Trace:     s.trace,
	}
}

// SpeedRun drives only the speed loop against the simulated motors for
// duration and returns every sample. It ignores the path.
func SpeedRun(ctx context.Context, cfg *config.Config, duration time.Duration, obs ...control.SampleObserver) ([]control.Sample, error) {
	integ, ok := integrators.Get(cfg.Simulation.Integrator)
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator %q", config.ErrInvalid, cfg.Simulation.Integrator)
	}
	lc, err := cfg.LoopConfig()
	if err != nil {
		return nil, err
	}
	plant, err := rover.NewPlant(cfg.PlantConfig(), integ)
	if err != nil {
		return nil, err
	}

	clk := clock.NewManual()
	opts := []control.LoopOption{control.WithClock(clk)}
	for _, o := range obs {
		opts = append(opts, control.WithObserver(o))
	}
	loop, err := control.NewSpeedLoop(control.NewBank(cfg.Gains(), clk), plant, lc, opts...)
	if err != nil {
		return nil, err
	}
	if err := loop.Prime(); err != nil {
		return nil, err
	}

	dt := cfg.Dt()
	var samples []control.Sample
	next := lc.Period
	for clk.Now() < duration {
		if err := ctx.Err(); err != nil {
			return samples, err
		}
		clk.Advance(dt)
		plant.Step(dt.Seconds())
		if clk.Now() >= next {
			out, err := loop.Step()
			if err != nil {
				return samples, err
			}
			samples = append(samples, out...)
			next += lc.Period
		}
	}
	return samples, nil
}
