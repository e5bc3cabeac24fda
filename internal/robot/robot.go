package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/motionctl/internal/clock"
	"github.com/san-kum/motionctl/internal/control"
	"github.com/san-kum/motionctl/internal/dispatch"
	"github.com/san-kum/motionctl/internal/motor"
	"github.com/san-kum/motionctl/internal/nav"
	"github.com/san-kum/motionctl/internal/sensors"
	"github.com/san-kum/motionctl/internal/trace"
)

var ErrStopped = errors.New("robot: navigation stopped")

// StopError reports a traversal that halted before the end of its path.
type StopError struct {
	Snapshot nav.Snapshot
}

func (e *StopError) Error() string {
	return fmt.Sprintf("robot: navigation stopped (%s) at step %d/%d",
		e.Snapshot.StopCause, e.Snapshot.CurrentStep, e.Snapshot.PathLength)
}

func (e *StopError) Unwrap() error {
	return ErrStopped
}

// Parts are the collaborators and settings a Robot is built from.
type Parts struct {
	Board  *sensors.Board
	Motion motor.Motion
	Motors motor.Power
	Path   nav.Path
	Nav    nav.Config
	Gains  control.Gains
	Loop   control.LoopConfig
}

type options struct {
	logger      *log.Logger
	clock       clock.Source
	quantum     time.Duration
	trace       *trace.Trace
	navObs      []nav.Observer
	sampleObs   []control.SampleObserver
	resumeAfter time.Duration
}

type Option func(*options)

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithClock(src clock.Source) Option {
	return func(o *options) { o.clock = src }
}

// WithQuantum sets the dispatcher polling interval.
func WithQuantum(d time.Duration) Option {
	return func(o *options) { o.quantum = d }
}

// WithTrace records transitions, commands, sensor events and samples.
func WithTrace(t *trace.Trace) Option {
	return func(o *options) { o.trace = t }
}

func WithNavObserver(obs nav.Observer) Option {
	return func(o *options) { o.navObs = append(o.navObs, obs) }
}

func WithSampleObserver(obs control.SampleObserver) Option {
	return func(o *options) { o.sampleObs = append(o.sampleObs, obs) }
}

// WithResumeAfter makes a Simulation clear the obstacle and resume this
// long after a stop. Zero leaves a stopped traversal stopped.
func WithResumeAfter(d time.Duration) Option {
	return func(o *options) { o.resumeAfter = d }
}

type Robot struct {
	Board      *sensors.Board
	Bank       *control.Bank
	Loop       *control.SpeedLoop
	Navigator  *nav.Navigator
	Dispatcher *dispatch.Dispatcher

	logger *log.Logger
	halted chan struct{}
}

func New(p Parts, opts ...Option) (*Robot, error) {
	o := options{
		logger: log.New(io.Discard, "", 0),
		clock:  clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if p.Board == nil || p.Motion == nil || p.Motors == nil {
		return nil, errors.New("robot: board, motion and motors are required")
	}

	r := &Robot{
		Board:  p.Board,
		logger: o.logger,
		halted: make(chan struct{}, 1),
	}

	motion := p.Motion
	navOpts := []nav.Option{nav.WithLogger(o.logger), nav.WithObserver(nav.ObserverFunc(r.onTransition))}
	loopOpts := []control.LoopOption{control.WithLogger(o.logger), control.WithClock(o.clock)}
	if o.trace != nil {
		motion = o.trace.Motion(motion)
		navOpts = append(navOpts, nav.WithObserver(o.trace))
		loopOpts = append(loopOpts, control.WithObserver(o.trace))
	}
	for _, obs := range o.navObs {
		navOpts = append(navOpts, nav.WithObserver(obs))
	}
	for _, obs := range o.sampleObs {
		loopOpts = append(loopOpts, control.WithObserver(obs))
	}

	n, err := nav.New(p.Path, motion, p.Nav, navOpts...)
	if err != nil {
		return nil, err
	}
	r.Navigator = n

	r.Bank = control.NewBank(p.Gains, o.clock)
	loop, err := control.NewSpeedLoop(r.Bank, p.Motors, p.Loop, loopOpts...)
	if err != nil {
		return nil, err
	}
	r.Loop = loop

	var handler dispatch.Handler = n
	if o.trace != nil {
		handler = o.trace.Handler(handler)
	}
	r.Dispatcher = dispatch.New(p.Board, handler, o.quantum)
	return r, nil
}

func (r *Robot) onTransition(from, to nav.State, s nav.Snapshot) {
	if to != nav.Stopped {
		return
	}
	select {
	case r.halted <- struct{}{}:
	default:
	}
}

// Run starts the traversal from initialHeading and runs the speed loop and
// the dispatcher until the path is done, navigation stops, or ctx ends. A
// stop is reported as a *StopError.
func (r *Robot) Run(ctx context.Context, initialHeading float64) error {
	if err := r.Navigator.Start(initialHeading); err != nil {
		return err
	}
	return r.run(ctx)
}

// Resume continues a stopped traversal and runs until it is done or stops
// again.
func (r *Robot) Resume(ctx context.Context) error {
	select {
	case <-r.halted:
	default:
	}
	if err := r.Navigator.Resume(); err != nil {
		return err
	}
	return r.run(ctx)
}

func (r *Robot) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error { return r.Loop.Run(runCtx) })
	g.Go(func() error { return r.Dispatcher.Run(runCtx) })
	g.Go(func() error {
		defer cancel()
		select {
		case <-r.Navigator.Done():
			r.logger.Printf("robot: path complete")
			return nil
		case <-r.halted:
			return &StopError{Snapshot: r.Navigator.Snapshot()}
		case <-runCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
