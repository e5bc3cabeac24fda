package nav

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPath    = errors.New("nav: invalid path")
	ErrInvalidConfig  = errors.New("nav: invalid configuration")
	ErrAlreadyStarted = errors.New("nav: traversal already started")
	ErrNotStopped     = errors.New("nav: navigator is not stopped")
)

type State int

const (
	Idle State = iota
	Driving
	Turning
	Stopped
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Driving:
		return "driving"
	case Turning:
		return "turning"
	case Stopped:
		return "stopped"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StopCause is a bitmask recording why motion halted.
type StopCause uint8

const (
	StopObstacle StopCause = 1 << iota
	StopTurnTimeout
)

func (c StopCause) Has(bit StopCause) bool {
	return c&bit != 0
}

func (c StopCause) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	if c.Has(StopObstacle) {
		parts = append(parts, "obstacle")
	}
	if c.Has(StopTurnTimeout) {
		parts = append(parts, "turn_timeout")
	}
	if rest := c &^ (StopObstacle | StopTurnTimeout); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// Snapshot is a copy of the navigation state.
type Snapshot struct {
	State           State
	CurrentStep     int
	PathLength      int
	IsTurning       bool
	ActualDirection float64
	TargetDirection float64
	ActualDistance  int
	TargetDistance  int
	StopCause       StopCause
	Corrections     int
}

// Observer is notified of every state transition.
type Observer interface {
	OnTransition(from, to State, s Snapshot)
}

type ObserverFunc func(from, to State, s Snapshot)

func (f ObserverFunc) OnTransition(from, to State, s Snapshot) { f(from, to, s) }

// Config tunes the navigator.
type Config struct {
	// SquareMM is the length of one path step.
	SquareMM int
	// HeadingEpsilon is the heading match tolerance in degrees.
	HeadingEpsilon float64
	// DistanceTolerance lets a drive finish this many mm short of target.
	DistanceTolerance int
	// ObstacleThreshold is the IR distance at or below which motion aborts.
	ObstacleThreshold int
	// MaxCorrections bounds the correction attempts (overshoots and stalls)
	// before a turn is abandoned. Zero means unbounded.
	MaxCorrections int
}

func DefaultConfig() Config {
	return Config{
		SquareMM:          300,
		HeadingEpsilon:    0.5,
		DistanceTolerance: 5,
		ObstacleThreshold: 600,
		MaxCorrections:    8,
	}
}

func (c Config) Validate() error {
	if c.SquareMM <= 0 {
		return fmt.Errorf("%w: square size must be positive, got %d", ErrInvalidConfig, c.SquareMM)
	}
	if c.HeadingEpsilon < 0 || c.HeadingEpsilon >= 180 {
		return fmt.Errorf("%w: heading epsilon %v not in [0, 180)", ErrInvalidConfig, c.HeadingEpsilon)
	}
	if c.DistanceTolerance < 0 {
		return fmt.Errorf("%w: distance tolerance must not be negative", ErrInvalidConfig)
	}
	if c.ObstacleThreshold < 0 {
		return fmt.Errorf("%w: obstacle threshold must not be negative", ErrInvalidConfig)
	}
	if c.MaxCorrections < 0 {
		return fmt.Errorf("%w: max corrections must not be negative", ErrInvalidConfig)
	}
	return nil
}
