// Package dispatch implements the cooperative event loop that forwards
// latched sensor events to their handlers.
package dispatch

import (
	"context"
	"time"

	"github.com/san-kum/motionctl/internal/sensors"
)

// Source is the sensor side of the loop. EventIsPresent belongs to the
// producer, which decides when a flag is cleared.
type Source interface {
	EventIsPresent(k sensors.Kind) bool
	Value(k sensors.Kind) int
}

// Handler receives sensor events.
type Handler interface {
	OnDistanceDrivenChanged(distanceMM int)
	OnDistanceIrChanged(distanceMM int)
	OnDirectionChanged(directionDeg int)
}

// Order is the fixed order in which flags are checked each iteration.
var Order = [...]sensors.Kind{
	sensors.DistanceDriven,
	sensors.DistanceIR,
	sensors.Direction,
}

const DefaultQuantum = time.Millisecond

type Dispatcher struct {
	src     Source
	handler Handler
	quantum time.Duration

	polls  uint64
	events uint64
}

func New(src Source, handler Handler, quantum time.Duration) *Dispatcher {
	if quantum <= 0 {
		quantum = DefaultQuantum
	}
	return &Dispatcher{src: src, handler: handler, quantum: quantum}
}

// Poll runs one iteration: every flag found set is serviced, in Order, with
// exactly one handler call. It returns the number of events delivered.
func (d *Dispatcher) Poll() int {
	d.polls++
	n := 0
	for _, k := range Order {
		if !d.src.EventIsPresent(k) {
			continue
		}
		v := d.src.Value(k)
		switch k {
		case sensors.DistanceDriven:
			d.handler.OnDistanceDrivenChanged(v)
		case sensors.DistanceIR:
			d.handler.OnDistanceIrChanged(v)
		case sensors.Direction:
			d.handler.OnDirectionChanged(v)
		}
		n++
	}
	d.events += uint64(n)
	return n
}

// Run polls once per quantum until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.quantum)
	defer ticker.Stop()

	for {
		d.Poll()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Stats returns the number of iterations run and events delivered. It must
// not be called concurrently with Run.
func (d *Dispatcher) Stats() (polls, events uint64) {
	return d.polls, d.events
}
