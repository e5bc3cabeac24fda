package nav

import (
	"io"
	"log"
	"math"
	"sync"

	"github.com/san-kum/motionctl/internal/motor"
)

type Option func(*Navigator)

func WithLogger(l *log.Logger) Option {
	return func(n *Navigator) { n.logger = l }
}

func WithObserver(o Observer) Option {
	return func(n *Navigator) { n.observers = append(n.observers, o) }
}

type Navigator struct {
	path      Path
	motion    motor.Motion
	cfg       Config
	logger    *log.Logger
	observers []Observer

	mu              sync.Mutex
	started         bool
	state           State
	currentStep     int
	isTurning       bool
	actualDirection float64
	targetDirection float64
	actualDistance  int
	targetDistance  int
	stopCause       StopCause

	driveMM     int
	turnSense   motor.Rotation
	corrections int
	// closest is the smallest remaining turn angle seen since the last
	// turn command.
	closest     float64
	interrupted State

	done chan struct{}
}

// New returns a navigator for path in the Idle state at step 0. The path is
// copied.
func New(path Path, motion motor.Motion, cfg Config, opts ...Option) (*Navigator, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Navigator{
		path:   path.Clone(),
		motion: motion,
		cfg:    cfg,
		logger: log.New(io.Discard, "", 0),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Start begins the traversal from initialHeading. An empty path finishes
// immediately.
func (n *Navigator) Start(initialHeading float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return ErrAlreadyStarted
	}
	n.started = true
	n.actualDirection = Normalize(initialHeading)
	n.logger.Printf("nav: start path=[%s] heading=%.1f", n.path, n.actualDirection)
	if n.state == Stopped {
		// An obstacle was reported before the start; wait for Resume.
		return nil
	}
	n.advance()
	return nil
}

// Done is closed once the traversal reaches its terminal state.
func (n *Navigator) Done() <-chan struct{} {
	return n.done
}

func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Navigator) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshot()
}

func (n *Navigator) snapshot() Snapshot {
	return Snapshot{
		State:           n.state,
		CurrentStep:     n.currentStep,
		PathLength:      len(n.path),
		IsTurning:       n.isTurning,
		ActualDirection: n.actualDirection,
		TargetDirection: n.targetDirection,
		ActualDistance:  n.actualDistance,
		TargetDistance:  n.targetDistance,
		StopCause:       n.stopCause,
		Corrections:     n.corrections,
	}
}

// IsFacing reports whether the current heading is within the heading
// tolerance of direction.
func (n *Navigator) IsFacing(direction float64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.facing(direction)
}

func (n *Navigator) facing(direction float64) bool {
	return Within(n.actualDirection, direction, n.cfg.HeadingEpsilon)
}

func (n *Navigator) transition(to State) {
	from := n.state
	n.state = to
	if from == to {
		return
	}
	n.logger.Printf("nav: %s -> %s step=%d/%d heading=%.1f distance=%d",
		from, to, n.currentStep, len(n.path), n.actualDirection, n.actualDistance)
	snap := n.snapshot()
	for _, o := range n.observers {
		o.OnTransition(from, to, snap)
	}
	if to == Done {
		close(n.done)
	}
}

// advance applies the Idle rules: finish, drive every consecutive step that
// matches the current heading, or turn toward the next heading.
func (n *Navigator) advance() {
	n.transition(Idle)

	if n.currentStep >= len(n.path) {
		n.transition(Done)
		return
	}

	n.stopCause = 0

	if n.facing(n.path[n.currentStep]) {
		squares := 0
		for n.currentStep < len(n.path) && n.facing(n.path[n.currentStep]) {
			n.currentStep++
			squares++
		}
		n.driveMM = squares * n.cfg.SquareMM
		n.targetDistance = n.actualDistance + n.driveMM
		n.transition(Driving)
		n.motion.StartDrive(n.driveMM)
		return
	}

	n.startTurn(n.path[n.currentStep])
}

func (n *Navigator) startTurn(target float64) {
	n.targetDirection = Normalize(target)
	n.isTurning = true
	n.corrections = 0
	n.turnSense = RotationToward(n.actualDirection, n.targetDirection)
	n.closest = math.Abs(Delta(n.actualDirection, n.targetDirection))
	n.transition(Turning)
	n.motion.StartTurn(n.targetDirection, n.turnSense)
}

func (n *Navigator) endTurn() {
	n.motion.StopTurn(n.targetDirection)
	n.isTurning = false
}

// OnDirectionChanged handles a compass reading.
func (n *Navigator) OnDirectionChanged(directionDeg int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.actualDirection = Normalize(float64(directionDeg))
	if n.state != Turning {
		return
	}

	if n.facing(n.targetDirection) {
		n.endTurn()
		n.advance()
		return
	}

	// A reading that brings the heading closer without crossing the target
	// lets the outstanding turn stand. Any other reading is a correction.
	remaining := math.Abs(Delta(n.actualDirection, n.targetDirection))
	sense := RotationToward(n.actualDirection, n.targetDirection)
	if sense == n.turnSense && remaining < n.closest {
		n.closest = remaining
		return
	}

	if n.cfg.MaxCorrections > 0 && n.corrections >= n.cfg.MaxCorrections {
		n.logger.Printf("nav: turn to %.1f abandoned after %d corrections", n.targetDirection, n.corrections)
		n.endTurn()
		n.stopCause |= StopTurnTimeout
		n.interrupted = Turning
		n.transition(Stopped)
		return
	}

	n.corrections++
	n.turnSense = sense
	n.closest = remaining
	n.motion.StartTurn(n.targetDirection, sense)
}

// OnDistanceDrivenChanged handles an odometry reading: the distance driven
// since the motors were powered on.
func (n *Navigator) OnDistanceDrivenChanged(distanceMM int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.actualDistance = distanceMM
	if n.state != Driving {
		return
	}
	if distanceMM+n.cfg.DistanceTolerance >= n.targetDistance {
		n.motion.StopDrive(n.driveMM)
		n.advance()
	}
}

// OnDistanceIrChanged handles an IR range reading. Turns pivot in place and
// are not interrupted. Idle only lasts until Start, so an obstacle there
// stops the traversal before it moves.
func (n *Navigator) OnDistanceIrChanged(distanceMM int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != Driving && n.state != Idle {
		return
	}
	if distanceMM > n.cfg.ObstacleThreshold {
		return
	}
	if n.state == Driving {
		n.logger.Printf("nav: obstacle at %dmm, aborting drive", distanceMM)
		n.motion.StopDrive(n.driveMM)
	} else {
		n.logger.Printf("nav: obstacle at %dmm before start", distanceMM)
	}
	n.stopCause |= StopObstacle
	n.interrupted = n.state
	n.transition(Stopped)
}

// Resume continues after a stop. An interrupted drive is reissued for the
// distance it still had to cover; an abandoned turn is retried. Before
// Start, Resume only clears the stop.
func (n *Navigator) Resume() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state != Stopped {
		return ErrNotStopped
	}
	n.stopCause = 0
	if !n.started {
		n.transition(Idle)
		return nil
	}

	if n.interrupted == Driving {
		remaining := n.targetDistance - n.actualDistance
		if remaining > n.cfg.DistanceTolerance {
			n.driveMM = remaining
			n.transition(Driving)
			n.motion.StartDrive(remaining)
			return nil
		}
	}
	n.advance()
	return nil
}
