// Package motor defines the actuator boundary of the motion core: the
// drive/turn command interface used by navigation and the raw per-channel
// power interface used by the speed loop.
package motor

import (
	"errors"
	"fmt"
	"strings"
)

// Channel identifies one physical motor output.
type Channel int

const (
	ChannelA Channel = iota
	ChannelB
	ChannelC

	NumChannels = 3
)

var ErrUnknownChannel = errors.New("motor: unknown channel")

func (c Channel) Valid() bool {
	return c >= 0 && c < NumChannels
}

func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Channel(%d)", int(c))
	}
	return string(rune('A' + int(c)))
}

func ParseChannel(s string) (Channel, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 1 {
		c := Channel(s[0] - 'A')
		if c.Valid() {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// Rotation is the sense of a turn command. Headings increase clockwise, so
// Right moves the heading up and Left moves it down.
type Rotation int

const (
	Right Rotation = iota
	Left
)

func (r Rotation) String() string {
	if r == Left {
		return "left"
	}
	return "right"
}

// Motion is the command interface the navigation state machine drives.
type Motion interface {
	// StartDrive drives straight ahead for distanceMM millimetres.
	StartDrive(distanceMM int)
	// StopDrive halts a drive; distanceMM is the distance that was requested.
	StopDrive(distanceMM int)
	// StartTurn pivots in place toward direction (degrees).
	StartTurn(direction float64, r Rotation)
	// StopTurn halts a turn that was aiming for direction.
	StopTurn(direction float64)
}

// Power is the raw per-channel actuation interface.
type Power interface {
	SetPower(ch Channel, percent int) error
	// RotationCount returns the cumulative shaft rotation in degrees.
	RotationCount(ch Channel) (int64, error)
}

const (
	MinPower = -100
	MaxPower = 100
)

func ClampPower(p int) int {
	if p < MinPower {
		return MinPower
	}
	if p > MaxPower {
		return MaxPower
	}
	return p
}
