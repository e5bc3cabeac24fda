package motor

import (
	"fmt"
	"sync"
)

type CommandKind int

const (
	CmdStartDrive CommandKind = iota
	CmdStopDrive
	CmdStartTurn
	CmdStopTurn
)

func (k CommandKind) String() string {
	switch k {
	case CmdStartDrive:
		return "start_drive"
	case CmdStopDrive:
		return "stop_drive"
	case CmdStartTurn:
		return "start_turn"
	case CmdStopTurn:
		return "stop_turn"
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is one Motion call as seen by a Recorder.
type Command struct {
	Kind      CommandKind
	Distance  int
	Direction float64
	Rotation  Rotation
}

func (c Command) String() string {
	switch c.Kind {
	case CmdStartDrive, CmdStopDrive:
		return fmt.Sprintf("%s(%dmm)", c.Kind, c.Distance)
	case CmdStartTurn:
		return fmt.Sprintf("%s(%.1f°, %s)", c.Kind, c.Direction, c.Rotation)
	default:
		return fmt.Sprintf("%s(%.1f°)", c.Kind, c.Direction)
	}
}

// Recorder captures Motion commands and optionally forwards them to Next.
type Recorder struct {
	Next Motion

	mu       sync.Mutex
	commands []Command
}

func NewRecorder(next Motion) *Recorder {
	return &Recorder{Next: next}
}

func (r *Recorder) record(c Command) {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
}

func (r *Recorder) StartDrive(distanceMM int) {
	r.record(Command{Kind: CmdStartDrive, Distance: distanceMM})
	if r.Next != nil {
		r.Next.StartDrive(distanceMM)
	}
}

func (r *Recorder) StopDrive(distanceMM int) {
	r.record(Command{Kind: CmdStopDrive, Distance: distanceMM})
	if r.Next != nil {
		r.Next.StopDrive(distanceMM)
	}
}

func (r *Recorder) StartTurn(direction float64, rot Rotation) {
	r.record(Command{Kind: CmdStartTurn, Direction: direction, Rotation: rot})
	if r.Next != nil {
		r.Next.StartTurn(direction, rot)
	}
}

func (r *Recorder) StopTurn(direction float64) {
	r.record(Command{Kind: CmdStopTurn, Direction: direction})
	if r.Next != nil {
		r.Next.StopTurn(direction)
	}
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

func (r *Recorder) Last() (Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commands) == 0 {
		return Command{}, false
	}
	return r.commands[len(r.commands)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}

var _ Motion = (*Recorder)(nil)
