// Package sensors is the ingestion boundary between the sensor layer and
// the motion core. Producers publish readings into latched event flags on a
// [Board]; consumers test for presence and read the latched value.
package sensors

import (
	"errors"
	"fmt"
	"sync"
)

// Kind identifies one of the three latched sensor events.
type Kind int

const (
	DistanceDriven Kind = iota
	DistanceIR
	Direction

	numKinds
)

func (k Kind) String() string {
	switch k {
	case DistanceDriven:
		return "distance_driven"
	case DistanceIR:
		return "distance_ir"
	case Direction:
		return "direction"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Payload ranges accepted at ingestion.
const (
	MinIRDistance = 500
	MaxIRDistance = 8000
	MaxDirection  = 360
)

var (
	ErrOutOfRange  = errors.New("sensors: value out of range")
	ErrUnknownKind = errors.New("sensors: unknown event kind")
)

// RangeError reports a rejected sensor payload.
type RangeError struct {
	Kind  Kind
	Value int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("sensors: %s value %d out of range", e.Kind, e.Value)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// Validate checks a payload against the range of its kind.
func Validate(k Kind, v int) error {
	switch k {
	case DistanceDriven:
		if v < 0 {
			return &RangeError{Kind: k, Value: v}
		}
	case DistanceIR:
		if v < MinIRDistance || v > MaxIRDistance {
			return &RangeError{Kind: k, Value: v}
		}
	case Direction:
		if v < 0 || v >= MaxDirection {
			return &RangeError{Kind: k, Value: v}
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return nil
}

type latch struct {
	set   bool
	value int
	count uint64
}

// Board holds one latch per event kind. A latch is set by Publish and
// cleared when its presence is observed, like a read-to-clear status
// register; consumers never clear flags themselves.
type Board struct {
	mu       sync.Mutex
	latches  [numKinds]latch
	rejected uint64
}

func NewBoard() *Board {
	return &Board{}
}

// Publish validates v and latches it. A value published before the previous
// one was observed overwrites it.
func (b *Board) Publish(k Kind, v int) error {
	if err := Validate(k, v); err != nil {
		b.mu.Lock()
		b.rejected++
		b.mu.Unlock()
		return err
	}
	b.mu.Lock()
	l := &b.latches[k]
	l.set = true
	l.value = v
	l.count++
	b.mu.Unlock()
	return nil
}

// EventIsPresent reports whether a value was latched since the last check
// and clears the flag.
func (b *Board) EventIsPresent(k Kind) bool {
	if k < 0 || k >= numKinds {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	present := b.latches[k].set
	b.latches[k].set = false
	return present
}

// Value returns the most recently latched value of k.
func (b *Board) Value(k Kind) int {
	if k < 0 || k >= numKinds {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latches[k].value
}

// Stats reports how many values were accepted per kind and how many were
// rejected at ingestion.
func (b *Board) Stats() (accepted [numKinds]uint64, rejected uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.latches {
		accepted[i] = l.count
	}
	return accepted, b.rejected
}
