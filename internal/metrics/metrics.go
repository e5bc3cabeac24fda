// Package metrics scores speed regulation from the samples a SpeedLoop
// reports.
package metrics

import (
	"sort"
	"sync"

	"github.com/san-kum/motionctl/internal/control"
	"github.com/san-kum/motionctl/internal/motor"
)

type Metric interface {
	Name() string
	Observe(s control.Sample)
	Value() float64
	Reset()
}

// Set feeds every sample of one channel to a group of metrics. It is a
// control.SampleObserver and is safe to read while the loop runs.
type Set struct {
	channel motor.Channel

	mu      sync.Mutex
	metrics []Metric
}

func NewSet(ch motor.Channel, ms ...Metric) *Set {
	return &Set{channel: ch, metrics: ms}
}

// Standard returns the metrics reported by the CLI.
func Standard(ch motor.Channel) *Set {
	return NewSet(ch,
		NewTrackingError(),
		NewControlEffort(),
		NewOvershoot(),
		NewSettlingTime(0.05),
		NewRipple(),
		NewOscillation(),
	)
}

func (s *Set) Channel() motor.Channel { return s.channel }

func (s *Set) OnSample(sample control.Sample) {
	if sample.Channel != s.channel {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.Observe(sample)
	}
}

func (s *Set) Values() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Names lists the metric names in a stable order.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.metrics))
	for i, m := range s.metrics {
		names[i] = m.Name()
	}
	sort.Strings(names)
	return names
}

func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.metrics {
		m.Reset()
	}
}
